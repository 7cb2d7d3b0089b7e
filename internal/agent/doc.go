// Package agent — процесс на удалённом хосте, исполняющий запросы и
// задачи control plane.
//
// Агент подписан на query-топики своего хоста и на уведомления о
// новых задачах. Синхронные запросы (get_k8s_state, create_pv, ...)
// выполняются действием из реестра, результат публикуется в
// respond-топик с корреляционным идентификатором запроса. Долгие
// задачи забираются из хранилища, переводятся в IN_PROGRESS и
// исполняются по плану действий с записью шагов в журнал; прогресс
// транслируется в сессию клиента через event-топики.
package agent
