package config

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type StoreConfig interface {
	GetDatabaseDriver() string
	GetDatabaseURL() string
}

type Store struct {
	Driver      string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"./data/connections.db"`
}

func (s Store) GetDatabaseDriver() string {
	return s.Driver
}

func (s Store) GetDatabaseURL() string {
	return s.DatabaseURL
}
