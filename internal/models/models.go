// package models defines the data model for the catalog mirror
package models

import (
	"time"
)

// Model defines the base interface for persistent models with a lifecycle.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}
