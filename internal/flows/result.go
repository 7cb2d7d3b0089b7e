package flows

import (
	"net/http"

	"github.com/shaiso/Kontur/internal/rpc"
)

// Result — исход операции оркестратора.
//
// Код следует HTTP-семантике: 200 — успех, 403 — нет прав, 404 — не
// найдено, 409 — конфликт, 410 — ёмкость исчерпана, 425 — цель занята
// незавершённой задачей, 500 — таймаут или отказ коллаборатора.
// Фасад превращает код в ответ клиенту; сами оркестраторы никогда
// не возвращают ошибку наружу.
type Result struct {
	Code int `json:"code"`
	Data any `json:"data,omitempty"`
}

// OK — успешный результат без данных.
func OK() Result {
	return Result{Code: http.StatusOK}
}

// OKData — успешный результат с данными.
func OKData(data any) Result {
	return Result{Code: http.StatusOK, Data: data}
}

// Fail — отказ с кодом.
func Fail(code int) Result {
	return Result{Code: code}
}

// Success сообщает, успешен ли результат.
func (r Result) Success() bool {
	return r.Code == http.StatusOK
}

// checkReply нормализует исход обмена: ошибка обмена (таймаут или
// отказ транспорта) — 500, не-200 статус ответа — этот статус
// (отсутствующий статус трактуется как 500). nil — обмен успешен.
func checkReply(reply *rpc.Reply, err error) *Result {
	if err != nil {
		res := Fail(http.StatusInternalServerError)
		return &res
	}
	if status := reply.Status(); status != http.StatusOK {
		if status == 0 {
			status = http.StatusInternalServerError
		}
		res := Fail(status)
		return &res
	}
	return nil
}
