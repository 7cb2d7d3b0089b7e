// Package domain содержит доменные типы control plane:
// provisioning-задачи с append-only журналом шагов, привязки томов
// и записи хостов.
package domain
