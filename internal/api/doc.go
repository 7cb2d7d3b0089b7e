// Package api — HTTP-фасад control plane.
//
// Фасад тонкий: разбирает запрос, вызывает операцию оркестратора и
// отображает её числовой код в HTTP-ответ. Аутентификация выполняется
// внешним шлюзом; фасад читает идентификаторы вызывающего из
// заголовков и передаёт их оркестраторам, которые сами проверяют
// права на цель.
package api
