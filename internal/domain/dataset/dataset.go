// Package dataset holds the dataset value object: the container tables live in.
package dataset

import (
	"fmt"
	"regexp"
	"strings"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// MaxNameLength mirrors the BigQuery dataset ID limit.
const MaxNameLength = 1024

// DefaultLocation is used when no region is given.
const DefaultLocation = "US"

// Dataset is an immutable dataset descriptor.
type Dataset struct {
	name        string
	location    string
	description string
}

// New validates and creates a Dataset. An empty location becomes DefaultLocation.
func New(name, location, description string) (Dataset, error) {
	if name == "" {
		return Dataset{}, fmt.Errorf("dataset name is required")
	}
	if len(name) > MaxNameLength {
		return Dataset{}, fmt.Errorf("dataset name too long (max %d)", MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return Dataset{}, fmt.Errorf("dataset name must contain only letters, digits and underscores")
	}
	location = strings.TrimSpace(location)
	if location == "" {
		location = DefaultLocation
	}
	return Dataset{name: name, location: location, description: description}, nil
}

// Reconstruct creates a Dataset without validation (storage hydration).
func Reconstruct(name, location, description string) Dataset {
	return Dataset{name: name, location: location, description: description}
}

// Name returns the dataset ID.
func (d Dataset) Name() string { return d.name }

// Location returns the region or multi-region the dataset lives in.
func (d Dataset) Location() string { return d.location }

// Description returns the free-form description.
func (d Dataset) Description() string { return d.description }
