package logging

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Имена компонентных логгеров сервера
const (
	ComponentCollapse = "collapse"
	ComponentRestore  = "restore"
	ComponentAPI      = "api"
	ComponentStorage  = "storage"
	ComponentEvents   = "events"
)

// LoggerManager хранит по одному логгеру на компонент.
// Новые логгеры получают текущий уровень консоли менеджера.
type LoggerManager struct {
	mu           sync.Mutex
	loggers      map[string]*Logger
	consoleLevel LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers:      make(map[string]*Logger),
			consoleLevel: INFO,
		}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, при первом обращении открывает файл
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер компонента %s: %w", component, err)
	}
	logger.SetLevels(lm.consoleLevel, TRACE)
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента; если файл не открылся, пишет только в stdout
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	fallback := NewWriterLogger(component, os.Stdout, lm.consoleLevel)
	lm.loggers[component] = fallback
	return fallback
}

// SetConsoleLevel меняет уровень консоли у всех текущих и будущих логгеров
func (lm *LoggerManager) SetConsoleLevel(level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.consoleLevel = level
	for _, logger := range lm.loggers {
		logger.SetLevels(level, logger.minFileLevel)
	}
}

// SetLogLevel задаёт уровни одного компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	logger, ok := lm.loggers[component]
	if !ok {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}
	logger.SetLevels(consoleLevel, fileLevel)
	return nil
}

// SetComponentLogger регистрирует готовый логгер компонента (например, в тестах)
func (lm *LoggerManager) SetComponentLogger(component string, logger *Logger) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.loggers[component] = logger
}

// ListComponents возвращает отсортированные имена компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	out := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		out = append(out, component)
	}
	sort.Strings(out)
	return out
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for _, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetCollapseLogger() *Logger { return GetComponentLogger(ComponentCollapse) }
func GetRestoreLogger() *Logger  { return GetComponentLogger(ComponentRestore) }
func GetAPILogger() *Logger      { return GetComponentLogger(ComponentAPI) }
func GetStorageLogger() *Logger  { return GetComponentLogger(ComponentStorage) }
func GetEventsLogger() *Logger   { return GetComponentLogger(ComponentEvents) }
