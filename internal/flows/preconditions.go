package flows

import (
	"context"
	"errors"
	"net/http"

	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/repo"
)

// check — одна precondition-проверка. nil — пройдена, иначе — отказ
// с кодом, который возвращается вызывающему без изменений.
type check func(ctx context.Context) *Result

// runChecks выполняет проверки по порядку и возвращает первый отказ.
func runChecks(ctx context.Context, checks ...check) *Result {
	for _, c := range checks {
		if res := c(ctx); res != nil {
			return res
		}
	}
	return nil
}

// notBusy — у цели нет незавершённых задач (иначе 425).
func notBusy(gate TaskGate, target domain.TargetKind, targetID string) check {
	return func(ctx context.Context) *Result {
		busy, err := gate.HasActive(ctx, target, targetID)
		if err != nil {
			res := Fail(http.StatusInternalServerError)
			return &res
		}
		if busy {
			res := Fail(http.StatusTooEarly)
			return &res
		}
		return nil
	}
}

// permitted — вызывающий вправе управлять целью (иначе 403).
func permitted(auth Authorizer, caller Caller, targetID string) check {
	return func(ctx context.Context) *Result {
		ok, err := auth.CanManage(ctx, caller.AccountID, targetID)
		if err != nil {
			res := Fail(http.StatusInternalServerError)
			return &res
		}
		if !ok {
			res := Fail(http.StatusForbidden)
			return &res
		}
		return nil
	}
}

// scheduledStep строит первую запись журнала задачи. Сессия
// вызывающего попадает в параметры: ею агент адресует out-of-band
// события выполнения.
func scheduledStep(caller Caller, params map[string]any) domain.StepRecord {
	if params == nil {
		params = map[string]any{}
	}
	if caller.SessionID != "" {
		params["session"] = caller.SessionID
	}
	return domain.InfoStep(stepScheduled, params)
}

// resolveMaster находит master-хост workspace'а. Отсутствие хоста —
// 404, отказ хранилища — 500.
func resolveMaster(ctx context.Context, hosts HostResolver, workspaceID string) (string, *Result) {
	host, err := hosts.GetMaster(ctx, workspaceID)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, repo.ErrNotFound) {
			code = http.StatusNotFound
		}
		res := Fail(code)
		return "", &res
	}
	return host.IP, nil
}
