// Package flows содержит оркестраторы provisioning-операций.
//
// Каждая операция следует общей форме: цепочка precondition-проверок
// (занятость цели незавершёнными задачами, права вызывающего), затем
// либо синхронные обмены с удалённым хостом через rpc.Correlator, либо
// постановка долгой задачи в tasks.Store. Проверка занятости и прав
// всегда выполняется до первого удалённого вызова, поэтому отказ в
// правах не оставляет побочных эффектов на хосте.
//
// Многошаговые операции компенсируют частичный отказ обратным
// действием (удаление PV после неудачного PVC, пересоздание PVC после
// неудачного удаления PV). Ошибка компенсации логируется, но не
// затирает исходный код отказа.
package flows
