package valueobject

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidScope возвращается, если project/stage/service не проходят валидацию
var ErrInvalidScope = errors.New("invalid evaluation scope")

var scopePartPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// Scope определяет, к какому сервису относится история оценок (Value Object)
type Scope struct {
	project string
	stage   string
	service string
}

// NewScope создает Scope с валидацией
func NewScope(project, stage, service string) (Scope, error) {
	project = strings.TrimSpace(project)
	stage = strings.TrimSpace(stage)
	service = strings.TrimSpace(service)

	for _, part := range []string{project, stage, service} {
		if !scopePartPattern.MatchString(part) {
			return Scope{}, ErrInvalidScope
		}
	}

	return Scope{project: project, stage: stage, service: service}, nil
}

// Project возвращает имя проекта
func (s Scope) Project() string {
	return s.project
}

// Stage возвращает имя стейджа
func (s Scope) Stage() string {
	return s.stage
}

// Service возвращает имя сервиса
func (s Scope) Service() string {
	return s.service
}

// IsZero сообщает, что Scope не инициализирован
func (s Scope) IsZero() bool {
	return s.project == "" && s.stage == "" && s.service == ""
}

// Key возвращает ключ вида project.stage.service (используется в subject NATS и ключах кеша)
func (s Scope) Key() string {
	return s.project + "." + s.stage + "." + s.service
}

// Path возвращает путь вида project/stage/service (используется в ключах S3)
func (s Scope) Path() string {
	return s.project + "/" + s.stage + "/" + s.service
}

// String возвращает строковое представление
func (s Scope) String() string {
	return s.Key()
}
