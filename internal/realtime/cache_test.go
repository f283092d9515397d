package realtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rejdysan/home-hub/internal/models"
	"github.com/rejdysan/home-hub/internal/realtime"
)

func reading(sensor string, prop models.Property, value float64) models.Reading {
	return models.Reading{
		Sensor:     sensor,
		Property:   prop,
		Value:      value,
		ObservedAt: time.Now(),
	}
}

func TestLiveCache_PutOverwritesSameKey(t *testing.T) {
	cache := realtime.NewLiveCache()

	cache.Put(reading("kitchen", models.PropertyTemperature, 21.5))
	cache.Put(reading("kitchen", models.PropertyTemperature, 21.7))

	all := cache.GetAll()
	require.Len(t, all, 1)
	require.Equal(t, 21.7, all[0].Value)
}

func TestLiveCache_DistinctKeysCoexist(t *testing.T) {
	cache := realtime.NewLiveCache()

	cache.Put(reading("kitchen", models.PropertyTemperature, 21.5))
	cache.Put(reading("kitchen", models.PropertyHumidity, 40))
	cache.Put(reading("attic", models.PropertyTemperature, 15))

	require.Equal(t, 3, cache.Len())
}

func TestLiveCache_SeedThenPut(t *testing.T) {
	cache := realtime.NewLiveCache()

	cache.Seed([]models.Reading{
		reading("kitchen", models.PropertyTemperature, 20.0),
		reading("attic", models.PropertyTemperature, 10.0),
	})
	require.Equal(t, 2, cache.Len())

	// live updates supersede seeded values
	cache.Put(reading("kitchen", models.PropertyTemperature, 22.0))

	values := map[string]float64{}
	for _, r := range cache.GetAll() {
		values[r.Sensor] = r.Value
	}
	require.Equal(t, 22.0, values["kitchen"])
	require.Equal(t, 10.0, values["attic"])
}
