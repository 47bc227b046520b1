package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/common"
)

var (
	// ErrVersionConflict indicates that a concurrent modification was detected
	ErrVersionConflict = errors.New("approval entry was modified concurrently")
)

// notFound maps gorm's record-not-found to common.ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return err
}
