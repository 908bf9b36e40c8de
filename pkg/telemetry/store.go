package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vitalink/platform/pkg/common/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the write/read contract the pipeline and monitoring surfaces use.
type Ledger interface {
	RecordEvent(ctx context.Context, event *Event) error
	UpsertStatus(ctx context.Context, status *Status, postprocessFailed bool) error
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	ListStatuses(ctx context.Context) ([]Status, error)
}

// EventPublisher mirrors recorded events to a broker topic. Satisfied by the
// kafka producer; nil disables mirroring.
type EventPublisher interface {
	Publish(ctx context.Context, key string, eventType string, payload interface{}) error
}

const (
	statusCacheKeyPrefix = "vitalink:status:"
	statusCacheTTL       = 10 * time.Minute
	defaultEventLimit    = 200
)

type eventModel struct {
	ID          uuid.UUID          `gorm:"primaryKey;column:id"`
	Timestamp   time.Time          `gorm:"column:timestamp;index"`
	Level       string             `gorm:"column:level"`
	Event       string             `gorm:"column:event"`
	HospitalID  string             `gorm:"column:hospital_id;index"`
	Stage       string             `gorm:"column:stage"`
	ErrorCode   string             `gorm:"column:error_code"`
	Message     string             `gorm:"column:message"`
	DurationMS  *int64             `gorm:"column:duration_ms"`
	RecordCount *int               `gorm:"column:record_count"`
	Details     datatypes.JSONMap  `gorm:"column:details"`
}

func (eventModel) TableName() string { return "telemetry_events" }

type statusModel struct {
	HospitalID           string     `gorm:"primaryKey;column:hospital_id"`
	LastRunAt            time.Time  `gorm:"column:last_run_at"`
	LastSuccessAt        *time.Time `gorm:"column:last_success_at"`
	LastStatus           string     `gorm:"column:last_status"`
	LastErrorCode        string     `gorm:"column:last_error_code"`
	PostprocessFailCount int        `gorm:"column:postprocess_fail_count"`
}

func (statusModel) TableName() string { return "hospital_status" }

// Store persists the ledger in Postgres. Optionally mirrors events to a
// broker topic and the current status row to Redis; both are best-effort and
// never fail the write path.
type Store struct {
	db     *gorm.DB
	mirror EventPublisher
	cache  *redis.Client

	// Serializes the read-increment-write of the cumulative postprocess
	// failure counter for a hospital id.
	mu sync.Mutex
}

func NewStore(db *gorm.DB, mirror EventPublisher, cache *redis.Client) (*Store, error) {
	if err := db.AutoMigrate(&eventModel{}, &statusModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db, mirror: mirror, cache: cache}, nil
}

// RecordEvent appends one event row unconditionally; the ledger captures
// successes and failures alike.
func (s *Store) RecordEvent(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		id = uuid.New()
		event.ID = id.String()
	}

	model := eventModel{
		ID:          id,
		Timestamp:   event.Timestamp,
		Level:       event.Level,
		Event:       event.Name,
		HospitalID:  event.HospitalID,
		Stage:       event.Stage,
		ErrorCode:   event.ErrorCode,
		Message:     event.Message,
		DurationMS:  event.DurationMS,
		RecordCount: event.RecordCount,
		Details:     datatypes.JSONMap(event.Details),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}

	if s.mirror != nil {
		if err := s.mirror.Publish(ctx, event.HospitalID, event.Name, event); err != nil {
			logger.Log.WithError(err).WithField("event", event.Name).
				Warn("Telemetry mirror publish failed")
		}
	}
	return nil
}

// UpsertStatus atomically replaces the hospital's status row. The
// postprocess failure counter is cumulative: it grows by one on a run whose
// confirmation write failed and carries forward otherwise.
func (s *Store) UpsertStatus(ctx context.Context, status *Status, postprocessFailed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing statusModel
		err := tx.Where("hospital_id = ?", status.HospitalID).Take(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		count := existing.PostprocessFailCount
		if postprocessFailed {
			count++
		}
		status.PostprocessFailCount = count

		model := statusModel{
			HospitalID:           status.HospitalID,
			LastRunAt:            status.LastRunAt,
			LastSuccessAt:        status.LastSuccessAt,
			LastStatus:           status.LastStatus,
			LastErrorCode:        status.LastErrorCode,
			PostprocessFailCount: count,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hospital_id"}},
			UpdateAll: true,
		}).Create(&model).Error
	})
	if err != nil {
		return err
	}

	s.cacheStatus(ctx, status)
	return nil
}

func (s *Store) cacheStatus(ctx context.Context, status *Status) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statusCacheKeyPrefix+status.HospitalID, payload, statusCacheTTL).Err(); err != nil {
		logger.Log.WithError(err).Warn("Status cache write failed")
	}
}

func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	query := s.db.WithContext(ctx).Model(&eventModel{}).Order("timestamp DESC")
	if filter.HospitalID != "" {
		query = query.Where("hospital_id = ?", filter.HospitalID)
	}
	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.Name != "" {
		query = query.Where("event = ?", filter.Name)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	var models []eventModel
	if err := query.Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(models))
	for _, m := range models {
		events = append(events, Event{
			ID:          m.ID.String(),
			Timestamp:   m.Timestamp,
			Level:       m.Level,
			Name:        m.Event,
			HospitalID:  m.HospitalID,
			Stage:       m.Stage,
			ErrorCode:   m.ErrorCode,
			Message:     m.Message,
			DurationMS:  m.DurationMS,
			RecordCount: m.RecordCount,
			Details:     map[string]interface{}(m.Details),
		})
	}
	return events, nil
}

func (s *Store) ListStatuses(ctx context.Context) ([]Status, error) {
	var models []statusModel
	if err := s.db.WithContext(ctx).Order("hospital_id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(models))
	for _, m := range models {
		statuses = append(statuses, Status{
			HospitalID:           m.HospitalID,
			LastRunAt:            m.LastRunAt,
			LastSuccessAt:        m.LastSuccessAt,
			LastStatus:           m.LastStatus,
			LastErrorCode:        m.LastErrorCode,
			PostprocessFailCount: m.PostprocessFailCount,
		})
	}
	return statuses, nil
}
