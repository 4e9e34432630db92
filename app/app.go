package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"productsapi/auth"
	"productsapi/config"
	"productsapi/db"
	"productsapi/db/mongo"
	"productsapi/db/postgres"
	"productsapi/db/sqlite"
	"productsapi/repository"
	"productsapi/storage"
)

// Application holds everything a request handler needs. It is built once in
// main and handed to the router.
type Application struct {
	Config   *config.Config
	Log      *zap.Logger
	Products repository.ProductRepository
	Sales    repository.SaleRepository
	Users    repository.UserRepository
	Receipts *repository.ReceiptRepository
	Storage  storage.Storage
	Tokens   *auth.TokenManager

	conn db.DB
}

// NewApplication connects to the configured backend, brings its schema up to
// date and builds the repositories on top of it.
func NewApplication(cfg *config.Config, log *zap.Logger) (*Application, error) {
	a := &Application{
		Config: cfg,
		Log:    log,
		Tokens: auth.NewTokenManager(cfg.Auth.JWTSecret),
	}

	var err error
	switch db.DBType(cfg.Database.Type) {
	case db.Postgres:
		err = a.openSQL(db.Postgres, cfg.Database.PostgresURL)
	case db.SQLite:
		err = a.openSQL(db.SQLite, cfg.Database.SQLitePath)
	case db.Mongo:
		err = a.openMongo()
	default:
		err = fmt.Errorf("DB_TYPE %q not supported", cfg.Database.Type)
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Receipts = repository.NewReceiptRepository(a.Sales, a.Products)

	a.Storage, err = storage.New(cfg.Upload)
	if err != nil {
		a.Close()
		return nil, err
	}

	if !cfg.ScopedDelete {
		log.Warn("product deletes are not owner scoped", zap.Bool("scoped_delete", false))
	}
	return a, nil
}

func (a *Application) openSQL(kind db.DBType, target string) error {
	var (
		conn    *sql.DB
		dsn     string
		dialect repository.Dialect
	)
	switch kind {
	case db.Postgres:
		pg := postgres.NewPostgresDB(target, a.Config.Database.MaxOpenConns, a.Config.Database.MaxIdleConns)
		if err := pg.Connect(); err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.conn, conn, dsn, dialect = pg, pg.Conn, target, repository.DialectPostgres
	default:
		lite := sqlite.NewSQLiteDB(target)
		if err := lite.Connect(); err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.conn, conn, dsn, dialect = lite, lite.Conn, sqlite.DSN(target), repository.DialectSQLite
	}

	if err := db.RunMigrations(kind, dsn); err != nil {
		return err
	}
	a.Log.Info("migrations applied", zap.String("db_type", string(kind)))

	inspector := repository.NewSchemaInspector(conn, dialect)
	a.Products = repository.NewSQLProductRepo(conn, dialect, &repository.ProductSchemaResolver{
		Mode:   a.Config.OwnerScoping,
		Inspector: inspector,
	})
	a.Sales = repository.NewSQLSaleRepo(conn)
	a.Users = repository.NewSQLUserRepo(conn)

	a.logProductsTable(inspector)
	return nil
}

func (a *Application) openMongo() error {
	mg := mongo.NewMongoDB(a.Config.Database.MongoURL, a.Config.Database.MongoDB)
	if err := mg.Connect(); err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	a.conn = mg

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mg.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("create mongo indexes: %w", err)
	}

	scoped := a.Config.OwnerScoping != config.ScopingDisabled
	a.Products = repository.NewMongoProductRepo(mg.Client, mg.Database, scoped)
	a.Sales = repository.NewMongoSaleRepo(mg.Client, mg.Database)
	a.Users = repository.NewMongoUserRepo(mg.Client, mg.Database)

	a.logProductsTable(nil)
	return nil
}

// logProductsTable reports the product columns and row count at startup.
// Failures are logged only.
func (a *Application) logProductsTable(inspector repository.SchemaInspector) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fields := []zap.Field{zap.String("owner_scoping", a.Config.OwnerScoping)}
	if inspector != nil {
		cols, err := inspector.Columns(ctx, "products")
		if err != nil {
			a.Log.Warn("could not read products columns", zap.Error(err))
		} else {
			fields = append(fields, zap.Strings("columns", cols.Names()))
		}
	}
	n, err := a.Products.Count(ctx)
	if err != nil {
		a.Log.Warn("could not count products", zap.Error(err))
	} else {
		fields = append(fields, zap.Int64("count", n))
	}
	a.Log.Info("products table", fields...)
}

// Close releases the database connection.
func (a *Application) Close() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Disconnect()
	a.conn = nil
	return err
}
