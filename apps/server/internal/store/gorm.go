package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"holdem-live/holdem"
)

// HandRow is one archived hand.
type HandRow struct {
	HandID     string `gorm:"primaryKey;size:64"`
	TableID    string `gorm:"size:64;index"`
	TableTitle string `gorm:"column:table_name;size:128"`
	HandNumber int    `gorm:"index"`
	FinalPhase string `gorm:"size:16"`
	Showdown   bool
	StartedAt  time.Time
	EndedAt    time.Time `gorm:"index"`
	Commitment string    `gorm:"size:64"`
	Seed       string    `gorm:"size:64"`
	Body       datatypes.JSON
	Players    []PlayerRow `gorm:"foreignKey:HandID;references:HandID"`
}

func (HandRow) TableName() string { return "holdem_hand_records" }

// PlayerRow is a participant's line, indexed by user for history queries.
type PlayerRow struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	HandID       string `gorm:"size:64;uniqueIndex:idx_hand_user" json:"handId"`
	UserID       string `gorm:"size:64;uniqueIndex:idx_hand_user;index" json:"userId"`
	Nickname     string `gorm:"size:64" json:"nickname"`
	Seat         int    `json:"seat"`
	InitialChips int64  `json:"initialChips"`
	FinalChips   int64  `json:"finalChips"`
	Profit       int64  `json:"profit"`
	Category     string `gorm:"size:32" json:"category,omitempty"`
	IsWinner     bool   `json:"isWinner"`
}

func (PlayerRow) TableName() string { return "holdem_hand_players" }

type GormArchive struct {
	db *gorm.DB
}

// OpenGorm opens a gorm handle. sqlite runs on the pure-Go modernc driver.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn})
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open gorm %s: %w", driver, err)
	}
	if dialector.Name() == "sqlite" {
		// every extra connection to :memory: would see a fresh, empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func NewGormArchive(db *gorm.DB) (*GormArchive, error) {
	if err := db.AutoMigrate(&HandRow{}, &PlayerRow{}); err != nil {
		return nil, fmt.Errorf("migrate hand archive: %w", err)
	}
	return &GormArchive{db: db}, nil
}

func (a *GormArchive) AppendHand(ctx context.Context, rec *holdem.CompletedHand) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode hand %s: %w", rec.HandID, err)
	}
	row := HandRow{
		HandID:     rec.HandID,
		TableID:    rec.TableID,
		TableTitle: rec.TableName,
		HandNumber: rec.HandNumber,
		FinalPhase: rec.FinalPhase.String(),
		Showdown:   rec.Showdown,
		StartedAt:  rec.StartedAt,
		EndedAt:    rec.EndedAt,
		Commitment: rec.Commitment,
		Seed:       rec.Seed,
		Body:       datatypes.JSON(body),
	}
	players := make([]PlayerRow, 0, len(rec.Players))
	for _, p := range rec.Players {
		players = append(players, PlayerRow{
			HandID:       rec.HandID,
			UserID:       p.UserID,
			Nickname:     p.Nickname,
			Seat:         p.Seat,
			InitialChips: p.InitialChips,
			FinalChips:   p.FinalChips,
			Profit:       p.Profit,
			Category:     p.Category,
			IsWinner:     p.IsWinner,
		})
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit("Players").Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || len(players) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&players).Error
	})
}

// PlayerHistory returns a user's most recent hands.
func (a *GormArchive) PlayerHistory(ctx context.Context, userID string, limit int) ([]PlayerRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []PlayerRow
	err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (a *GormArchive) Hand(ctx context.Context, handID string) (*holdem.CompletedHand, error) {
	var row HandRow
	err := a.db.WithContext(ctx).Where("hand_id = ?", handID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec holdem.CompletedHand
	if err := json.Unmarshal(row.Body, &rec); err != nil {
		return nil, fmt.Errorf("decode hand %s: %w", handID, err)
	}
	return &rec, nil
}

func (a *GormArchive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
