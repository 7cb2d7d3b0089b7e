package rpc

import "errors"

// Ошибки корреляции.
var (
	// ErrTimeout — ответ не пришёл в отведённое время.
	ErrTimeout = errors.New("exchange timed out")

	// ErrTooManyPending — таблица незавершённых обменов заполнена.
	ErrTooManyPending = errors.New("too many pending exchanges")

	// errDuplicateID — идентификатор уже зарегистрирован (внутренняя,
	// вызывающий тянет новый идентификатор).
	errDuplicateID = errors.New("duplicate request id")
)
