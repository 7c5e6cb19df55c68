package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCar_IsAvailable(t *testing.T) {
	var nilCar *Car
	assert.False(t, nilCar.IsAvailable())
	assert.True(t, (&Car{Status: CarStatusAvailable}).IsAvailable())
	assert.False(t, (&Car{Status: CarStatusUnavailable}).IsAvailable())
	assert.False(t, (&Car{}).IsAvailable())
}

func TestValidCarStatus(t *testing.T) {
	assert.True(t, ValidCarStatus(CarStatusAvailable))
	assert.True(t, ValidCarStatus(CarStatusUnavailable))
	assert.False(t, ValidCarStatus("available"))
	assert.False(t, ValidCarStatus(""))
}
