//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// NotificationKind classifies a status transition worth telling the user about
// ENUM(went_live,went_offline)
type NotificationKind string
