package errors

import (
	"errors"
	"fmt"
)

// Kind - машиночитаемый класс ошибки движка жизненного цикла.
// Вызывающий слой (HTTP, CLI, batch) по нему выбирает код ответа и текст.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR" // входные данные отклонены до каких-либо записей
	KindInvalidState Kind = "INVALID_STATE"    // операция нелегальна из текущего статуса
	KindConflict     Kind = "CONFLICT"         // ресурс уже в состоянии, несовместимом с запросом
	KindForbidden    Kind = "FORBIDDEN"        // у актора нет требуемой связи с ресурсом
	KindBlocked      Kind = "BLOCKED"          // выдача запрещена (просрочена поверка, пломба и т.п.)
	KindTimeout      Kind = "TIMEOUT"          // ожидание блокировки/соединения превысило лимит
	KindNotFound     Kind = "NOT_FOUND"
	KindInternal     Kind = "INTERNAL"
)

// AppError - типизированная ошибка с классом и человекочитаемым сообщением.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is позволяет сравнивать через errors.Is с ошибками того же класса
// (в том числе с сентинелами ниже).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newf(kind Kind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return newf(KindValidation, format, args...)
}

func NewInvalidStateError(format string, args ...interface{}) *AppError {
	return newf(KindInvalidState, format, args...)
}

func NewConflictError(format string, args ...interface{}) *AppError {
	return newf(KindConflict, format, args...)
}

func NewForbiddenError(format string, args ...interface{}) *AppError {
	return newf(KindForbidden, format, args...)
}

func NewBlockedError(format string, args ...interface{}) *AppError {
	return newf(KindBlocked, format, args...)
}

// Сентинелы для errors.Is.
var (
	ErrNotFound  = &AppError{Kind: KindNotFound, Message: "запись не найдена"}
	ErrTimeout   = &AppError{Kind: KindTimeout, Message: "превышено время ожидания блокировки"}
	ErrForbidden = &AppError{Kind: KindForbidden, Message: "действие запрещено для данного актора"}
)

// CheckoutConflictError - выдача невозможна: оборудование уже на руках.
// Несёт текущего держателя, чтобы вызывающий слой мог показать, у кого искать.
type CheckoutConflictError struct {
	GaugeID   uint64
	HolderID  uint64
	HolderFio string
}

func (e *CheckoutConflictError) Error() string {
	return fmt.Sprintf("оборудование №%d уже выдано (держатель: %s)", e.GaugeID, e.HolderFio)
}

func (e *CheckoutConflictError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return t.Kind == KindConflict
	}
	return false
}

// KindOf возвращает класс ошибки; для неизвестных ошибок - KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var conflict *CheckoutConflictError
	if errors.As(err, &conflict) {
		return KindConflict
	}
	return KindInternal
}
