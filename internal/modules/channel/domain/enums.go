//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// LiveStatus is the broadcast state of a channel
// ENUM(unknown,offline,live)
type LiveStatus string

// FavouritesBackend selects where the favourite set is persisted
// ENUM(file,redis,postgres)
type FavouritesBackend string

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string
