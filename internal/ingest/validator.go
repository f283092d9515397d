package ingest

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/rejdysan/home-hub/internal/models"
)

// 校验失败原因，拒绝的输入直接丢弃，不产生任何副作用
var (
	ErrBadTopic        = errors.New("malformed topic")
	ErrBadSensorID     = errors.New("invalid sensor identifier")
	ErrBadProperty     = errors.New("unknown property")
	ErrBadValue        = errors.New("payload is not a finite number")
	ErrValueOutOfRange = errors.New("value outside physical range")
)

// 标识符约束：保护持久化存储的键空间不被污染
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// Validate 校验一条原始遥测并构造 Reading
// 任何违规返回具名的拒绝原因，从不 panic
func Validate(sensor string, property string, payload string, observedAt time.Time) (models.Reading, error) {
	if !identifierPattern.MatchString(sensor) {
		return models.Reading{}, fmt.Errorf("%w: %q", ErrBadSensorID, sensor)
	}

	if !identifierPattern.MatchString(property) {
		return models.Reading{}, fmt.Errorf("%w: %q", ErrBadProperty, property)
	}
	prop := models.Property(property)
	if !prop.Valid() {
		return models.Reading{}, fmt.Errorf("%w: %q", ErrBadProperty, property)
	}

	value, err := strconv.ParseFloat(payload, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return models.Reading{}, fmt.Errorf("%w: %q", ErrBadValue, payload)
	}

	min, max := prop.Bounds()
	if value < min || value > max {
		return models.Reading{}, fmt.Errorf("%w: %s=%v (allowed %v..%v)", ErrValueOutOfRange, property, value, min, max)
	}

	return models.Reading{
		Sensor:     sensor,
		Property:   prop,
		Value:      value,
		ObservedAt: observedAt,
	}, nil
}
