package handlers

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const checkTimeout = 5 * time.Second

// DiagnosticsHandler checks connectivity to a Postgres database supplied by
// the caller. It is only mounted when diagnostics are enabled.
type DiagnosticsHandler struct {
	Log *zap.Logger
	// Check connects to dsn and reports whether a products table exists.
	Check func(ctx context.Context, dsn string) (bool, error)
}

type connectionInput struct {
	Host     string      `json:"host" validate:"required"`
	Port     interface{} `json:"port" validate:"required"`
	Database string      `json:"database" validate:"required"`
	User     string      `json:"user" validate:"required"`
	Password string      `json:"password" validate:"required"`
	SSLMode  string      `json:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
}

func (in connectionInput) dsn() (string, bool) {
	port, err := cast.ToIntE(in.Port)
	if err != nil || port <= 0 || port > 65535 {
		return "", false
	}
	mode := in.SSLMode
	if mode == "" {
		mode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(in.User, in.Password),
		Host:     net.JoinHostPort(in.Host, cast.ToString(port)),
		Path:     "/" + in.Database,
		RawQuery: url.Values{"sslmode": {mode}, "connect_timeout": {"5"}}.Encode(),
	}
	return u.String(), true
}

func checkPostgres(ctx context.Context, dsn string) (bool, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		return false, err
	}

	var exists bool
	err = conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_catalog = current_database() AND table_name = 'products'
		)
	`).Scan(&exists)
	return exists, err
}

func (h *DiagnosticsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var in connectionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, "Invalid connection settings"))
		return
	}
	dsn, ok := in.dsn()
	if !ok {
		writeError(w, http.StatusBadRequest, "port must be a valid TCP port")
		return
	}

	check := h.Check
	if check == nil {
		check = checkPostgres
	}
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	// the password never reaches the log
	log := h.Log.With(zap.String("host", in.Host), zap.String("database", in.Database), zap.String("user", in.User))

	hasProducts, err := check(ctx, dsn)
	if err != nil {
		log.Warn("connection test failed", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "Database connection failed",
			"details": err.Error(),
		})
		return
	}

	log.Info("connection test succeeded", zap.Bool("has_products_table", hasProducts))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"message":          "Database connection successful",
		"hasProductsTable": hasProducts,
		"database":         in.Database,
		"host":             in.Host,
	})
}
