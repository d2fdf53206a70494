package repo

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/pkg/utils"
)

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || mongo.IsDuplicateKeyError(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

// mapErr 把驱动错误归一为 domain 错误
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case isDupKey(err):
		return domain.ErrDuplicateKey
	}
	return err
}

func checkID(id string) error {
	if !utils.IsValidID(id) {
		return domain.ErrInvalidID
	}
	return nil
}

func checkIDs(ids []string) error {
	for _, id := range ids {
		if err := checkID(id); err != nil {
			return err
		}
	}
	return nil
}
