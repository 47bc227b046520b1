package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

// Models every table the quality gate owns, in creation order
func Models() []interface{} {
	return []interface{}{
		&domain.ScheduledPost{},
		&domain.QualityGateResult{},
		&domain.ApprovalQueueEntry{},
		&domain.PublicationAuditEvent{},
		&domain.BrandKit{},
	}
}

// Run executes AutoMigrate for the quality gate tables.
// Existing tables gain missing columns and indexes; nothing is dropped.
func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// TableStatus existence of one table
type TableStatus struct {
	Table  string
	Exists bool
	Rows   int64
}

// Plan reports which tables exist without changing anything
func Plan(db *gorm.DB) ([]TableStatus, error) {
	m := db.Migrator()
	out := make([]TableStatus, 0, len(Models()))
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, err
		}
		st := TableStatus{Table: stmt.Schema.Table, Exists: m.HasTable(model)}
		if st.Exists {
			if err := db.Model(model).Count(&st.Rows).Error; err != nil {
				return nil, fmt.Errorf("count %s: %w", st.Table, err)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// Verify checks referential integrity between posts and their dependents
func Verify(db *gorm.DB) ([]string, error) {
	var problems []string

	orphanChecks := []struct {
		table string
		model interface{}
	}{
		{"quality_gate_results", &domain.QualityGateResult{}},
		{"approval_queue_entries", &domain.ApprovalQueueEntry{}},
		{"publication_audit_events", &domain.PublicationAuditEvent{}},
	}
	for _, chk := range orphanChecks {
		var n int64
		err := db.Model(chk.model).
			Where("post_id NOT IN (?)", db.Model(&domain.ScheduledPost{}).Select("id")).
			Count(&n).Error
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", chk.table, err)
		}
		if n > 0 {
			problems = append(problems, fmt.Sprintf("%s: %d rows reference missing posts", chk.table, n))
		}
	}

	// at most one pending review per post
	var dup []string
	err := db.Model(&domain.ApprovalQueueEntry{}).
		Where("resolution = ?", domain.ResolutionPending).
		Group("post_id").
		Having("COUNT(*) > 1").
		Pluck("post_id", &dup).Error
	if err != nil {
		return nil, fmt.Errorf("verify pending entries: %w", err)
	}
	if len(dup) > 0 {
		problems = append(problems, fmt.Sprintf("approval_queue_entries: %d posts with more than one pending entry", len(dup)))
	}

	return problems, nil
}
