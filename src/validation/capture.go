package validation

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"sectorsguard/src/model"

	logger "github.com/sirupsen/logrus"
)

// ExceptionSink persists captured exceptions.
type ExceptionSink interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Capture records a failure that escaped a validation run, logs it locally and
// persists it when a sink is configured.
func Capture(
	ctx context.Context,
	sink ExceptionSink,
	method string,
	level string,
	dataset string,
	runID string,
	err error,
	contextData map[string]interface{},
) {
	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Service:   "sectorsguard",
		Module:    "validation",
		Method:    method,
		Dataset:   dataset,
		RunID:     runID,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}

	logger.WithFields(map[string]interface{}{
		"module":  "validation",
		"method":  method,
		"dataset": dataset,
		"level":   level,
	}).WithError(err).Error("System exception captured")

	if sink != nil {
		if e := sink.Create(ctx, exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
