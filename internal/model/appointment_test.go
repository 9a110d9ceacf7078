package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatusValid(t *testing.T) {
	for _, s := range []AppointmentStatus{
		AppointmentStatusDemande, AppointmentStatusPropose, AppointmentStatusConfirme,
		AppointmentStatusReporte, AppointmentStatusAnnule, AppointmentStatusTermine,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, AppointmentStatus("PENDING").Valid())
	assert.False(t, AppointmentStatus("").Valid())
}

func TestAppointmentStatusTerminal(t *testing.T) {
	assert.True(t, AppointmentStatusAnnule.Terminal())
	assert.True(t, AppointmentStatusTermine.Terminal())
	assert.False(t, AppointmentStatusDemande.Terminal())
	assert.False(t, AppointmentStatusPropose.Terminal())
	assert.False(t, AppointmentStatusConfirme.Terminal())
	assert.False(t, AppointmentStatusReporte.Terminal())
}

func TestAppendNote(t *testing.T) {
	var a Appointment
	a.AppendNote("")
	assert.Equal(t, "", a.Notes)

	a.AppendNote("première note")
	assert.Equal(t, "première note", a.Notes)

	a.AppendNote("seconde note")
	assert.Equal(t, "première note\nseconde note", a.Notes)
}

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = Pagination{Page: 3, PageSize: 10}
	p.Normalize()
	assert.Equal(t, 20, p.Offset())

	p = Pagination{Page: 1, PageSize: 500}
	p.Normalize()
	assert.Equal(t, 20, p.PageSize)
}
