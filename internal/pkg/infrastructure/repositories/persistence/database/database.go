package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type ConnectorFunc func() (*gorm.DB, zerolog.Logger, error)

// NewSQLiteConnector opens the sqlite database described by dsn. An empty dsn
// gives a shared in-memory database.
func NewSQLiteConnector(log zerolog.Logger, dsn string) ConnectorFunc {
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	return func() (*gorm.DB, zerolog.Logger, error) {
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})

		if err == nil {
			sqldb, _ := db.DB()
			sqldb.SetMaxOpenConns(1)
		}

		return db, log, err
	}
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (c PostgresConfig) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s password=%s", c.Host, port, c.User, c.DBName, sslMode, c.Password)
}

func NewPostgreSQLConnector(log zerolog.Logger, cfg PostgresConfig) ConnectorFunc {
	const maxAttempts int = 5

	return func() (*gorm.DB, zerolog.Logger, error) {
		sublogger := log.With().Str("host", cfg.Host).Str("database", cfg.DBName).Logger()

		var err error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			sublogger.Info().Msg("connecting to database host")

			var db *gorm.DB
			db, err = gorm.Open(postgres.Open(cfg.dsn()), &gorm.Config{
				Logger: logger.New(
					&sublogger,
					logger.Config{
						SlowThreshold:             time.Second,
						LogLevel:                  logger.Warn,
						IgnoreRecordNotFoundError: true,
						Colorful:                  false,
					},
				),
			})
			if err == nil {
				return db, sublogger, nil
			}

			sublogger.Error().Err(err).Int("attempt", attempt).Msg("failed to connect to database")
			time.Sleep(3 * time.Second)
		}

		return nil, sublogger, err
	}
}

type blob struct {
	Name      string `gorm:"primaryKey"`
	Payload   []byte
	UpdatedAt time.Time
}

func (blob) TableName() string {
	return "inventory_blobs"
}

type blobStore struct {
	db *gorm.DB
}

func New(connect ConnectorFunc) (persistence.Backend, error) {
	impl, _, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&blob{})
	if err != nil {
		return nil, err
	}

	return &blobStore{db: impl}, nil
}

func (s *blobStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := persistence.ValidateName(name); err != nil {
		return nil, err
	}

	b := blob{}
	err := s.db.WithContext(ctx).First(&b, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence.ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}

	return b.Payload, nil
}

func (s *blobStore) Save(ctx context.Context, name string, data []byte) error {
	if err := persistence.ValidateName(name); err != nil {
		return err
	}

	b := blob{Name: name, Payload: data, UpdatedAt: time.Now().UTC()}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&b).Error
}
