package syncer

import (
	"errors"
	"fmt"
)

var (
	ErrDownload = errors.New("download failed")
	ErrInstall  = errors.New("install failed")
	ErrRestart  = errors.New("restart failed")
)

// Stage names the step of a sync run.
type Stage string

const (
	StagePrepare  Stage = "prepare"
	StageDownload Stage = "download"
	StageValidate Stage = "validate"
	StageInstall  Stage = "install"
	StageRestart  Stage = "restart"
)

// StageError records which step of a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
