package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionLegalEdges(t *testing.T) {
	cases := []struct {
		from, to MissionStatus
	}{
		{MissionStatusEnAttente, MissionStatusPlanifiee},
		{MissionStatusEnAttente, MissionStatusAnnulee},
		{MissionStatusPlanifiee, MissionStatusEnRoute},
		{MissionStatusPlanifiee, MissionStatusReportee},
		{MissionStatusEnRoute, MissionStatusEnCours},
		{MissionStatusEnCours, MissionStatusEnPause},
		{MissionStatusEnCours, MissionStatusTerminee},
		{MissionStatusEnPause, MissionStatusEnCours},
		{MissionStatusEnPause, MissionStatusAnnulee},
		{MissionStatusReportee, MissionStatusPlanifiee},
	}
	for _, tc := range cases {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}
}

func TestCanTransitionIllegalEdges(t *testing.T) {
	cases := []struct {
		from, to MissionStatus
	}{
		{MissionStatusEnAttente, MissionStatusEnCours},
		{MissionStatusEnAttente, MissionStatusTerminee},
		{MissionStatusPlanifiee, MissionStatusTerminee},
		{MissionStatusEnCours, MissionStatusAnnulee},
		{MissionStatusTerminee, MissionStatusEnCours},
		{MissionStatusAnnulee, MissionStatusPlanifiee},
		{MissionStatusReportee, MissionStatusEnCours},
	}
	for _, tc := range cases {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestCanTransitionSameStatusAlwaysAllowed(t *testing.T) {
	for status := range missionTransitions {
		assert.True(t, CanTransition(status, status), "%s -> %s should be allowed", status, status)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, MissionStatusTerminee.IsTerminal())
	assert.True(t, MissionStatusAnnulee.IsTerminal())
	assert.False(t, MissionStatusEnAttente.IsTerminal())
	assert.False(t, MissionStatusReportee.IsTerminal())
}

func TestValidMissionStatus(t *testing.T) {
	assert.True(t, ValidMissionStatus(MissionStatusEnPause))
	assert.False(t, ValidMissionStatus(MissionStatus("archivée")))
	assert.False(t, ValidMissionStatus(MissionStatus("")))
}

func TestMissionDeletable(t *testing.T) {
	m := &Mission{Statut: MissionStatusEnAttente}
	assert.True(t, m.Deletable())
	m.Statut = MissionStatusPlanifiee
	assert.True(t, m.Deletable())
	m.Statut = MissionStatusEnCours
	assert.False(t, m.Deletable())
	m.Statut = MissionStatusTerminee
	assert.False(t, m.Deletable())
}

func TestSignaturesComplete(t *testing.T) {
	url := "https://storage.example/sig.png"
	m := &Mission{}
	assert.False(t, m.SignaturesComplete())
	m.SignatureClientURL = &url
	assert.False(t, m.SignaturesComplete())
	m.SignatureTechnicienURL = &url
	assert.True(t, m.SignaturesComplete())
}
