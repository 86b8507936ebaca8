// internal/domain/lms/module.go
package lms

import (
	"context"
	"errors"

	"originality_sync/internal/domain/document"
)

var ErrModuleNotFound = errors.New("module settings not found")

// CheckMode is the per-module checking switch configured in the LMS.
type CheckMode string

const (
	CheckModeEnabled   CheckMode = "enabled"
	CheckModeAutomatic CheckMode = "automatic"
	CheckModeManual    CheckMode = "manual"
	CheckModeDisabled  CheckMode = "disabled"
)

// ModuleSettings is the read-only checking configuration of a course module.
// Owned by the LMS ('lms_module_settings').
type ModuleSettings struct {
	ModuleID          int64
	Mode              CheckMode
	CheckText         bool
	CheckFiles        bool
	AddToIndex        bool
	ShowStudentReport bool
	SelfCheckQuota    int
	WorkType          string
}

// Participates reports whether new answers of the given doctype are picked up
// automatically for this module.
func (m *ModuleSettings) Participates(t document.DocType) bool {
	if m.Mode != CheckModeEnabled && m.Mode != CheckModeAutomatic {
		return false
	}
	if t == document.DocTypeFile {
		return m.CheckFiles
	}
	return t.IsText() && m.CheckText
}

// ModuleSettingsProvider looks up module settings.
type ModuleSettingsProvider interface {
	Get(ctx context.Context, moduleID int64) (*ModuleSettings, error)
}
