package redisx

import "fmt"

const ns = "periodic:v1"

func KeyTables() string {
	return ns + ":tables"
}

func KeyReservationsByDate(date string) string {
	return fmt.Sprintf("%s:reservations:date:%s", ns, date)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdempotency(scope, key string) string {
	return fmt.Sprintf("%s:idem:%s:%s", ns, scope, key)
}

func ChannelChanges() string {
	return ns + ":changes"
}
