// Package rpc реализует корреляцию запрос/ответ поверх pub/sub шины.
//
// Шина не даёт ни гарантий доставки, ни семантики запрос/ответ.
// Correlator превращает fire-and-forget публикации в ожидаемые,
// ограниченные таймаутом обмены:
//
//   - respond-режим: ровно одно разрешение — первый подходящий ответ
//     или таймаут, что наступит раньше;
//   - collect-режим: накопление всех подходящих ответов в порядке
//     прибытия до явного закрытия (широковещательные запросы).
//
// Таблица незавершённых обменов ограничена по размеру; поздние и
// повторные ответы — no-op.
package rpc
