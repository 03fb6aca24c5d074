// Package store archives positions in SQLite via gorm. Closed rows are
// kept forever; the archive is append-and-update, never delete.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// PositionRecord is one holding, open or archived.
type PositionRecord struct {
	ID            string `gorm:"primaryKey"`
	Symbol        string `gorm:"index"`
	Direction     string
	EntryPrice    float64
	ExitPrice     float64
	StopLoss      float64
	TakeProfit    float64
	SizeUSD       float64
	Leverage      int
	Mode          string
	Status        string `gorm:"index"`
	Engine        string
	Reasoning     string
	UnrealizedPnL float64
	RealizedPnL   float64
	OpenedAt      time.Time
	ClosedAt      *time.Time
}

type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("position store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&PositionRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(rec *PositionRecord) error {
	return s.db.Save(rec).Error
}

func (s *Store) Get(id string) (*PositionRecord, error) {
	var rec PositionRecord
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListOpen() ([]PositionRecord, error) {
	var recs []PositionRecord
	if err := s.db.Where("status = ?", StatusOpen).Order("opened_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Store) CountOpen() (int, error) {
	var count int64
	if err := s.db.Model(&PositionRecord{}).Where("status = ?", StatusOpen).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
