package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when a write violates a unique index. The gorm
// handle must be opened with TranslateError so drivers surface
// gorm.ErrDuplicatedKey.
var ErrDuplicate = errors.New("duplicate key")

func wrap(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s failed: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
