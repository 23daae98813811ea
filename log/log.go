// Package log provides zerolog helpers for logging the shape of a world:
// its registered components and the systems of its compiled pipeline.
package log

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/saxena-dev/elodin/types"
)

type Loggable interface {
	GetRegisteredComponents() []types.ComponentMetadata
	GetRegisteredSystems() []string
}

func loadComponentIntoArrayLogger(
	component types.ComponentMetadata,
	arrayLogger *zerolog.Array,
) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Uint64("component_id", uint64(component.ID))
	dictLogger = dictLogger.Str("component_name", component.Name)
	dictLogger = dictLogger.Str("component_type", component.Type.String())
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.GetRegisteredComponents()
	sort.Slice(components, func(i, j int) bool {
		return components[i].Name < components[j].Name
	})
	zeroLoggerEvent.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, comp := range components {
		arrayLogger = loadComponentIntoArrayLogger(comp, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

func loadSystemIntoEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	zeroLoggerEvent.Int("total_systems", len(target.GetRegisteredSystems()))
	arrayLogger := zerolog.Arr()
	for _, sysName := range target.GetRegisteredSystems() {
		arrayLogger = arrayLogger.Str(sysName)
	}
	return zeroLoggerEvent.Array("systems", arrayLogger)
}

// Components logs all component info related to the engine.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// System logs all system info related to the engine.
func System(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadSystemIntoEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// World Logs everything about the world (components and Systems).
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent = loadSystemIntoEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// CreateSystemLogger creates a sub logger with the entry {"system": systemName}.
func CreateSystemLogger(logger *zerolog.Logger, systemName string) *zerolog.Logger {
	newLogger := logger.With().Str("system", systemName).Logger()
	return &newLogger
}
