package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ContainerProperties describes a container as the store reports it.
type ContainerProperties struct {
	Name             string `json:"name" bson:"name"`
	PartitionKeyPath string `json:"partitionKeyPath" bson:"partition_key_path"`
}

// ValidatePartitionKeyPath checks that path names at least one field and starts with "/".
func ValidatePartitionKeyPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("partition key path %q must start with '/'", path)
	}
	if len(SplitPath(path)) == 0 {
		return fmt.Errorf("partition key path %q names no field", path)
	}
	return nil
}

// Partition-key value kinds accepted by ParsePartitionKey
const (
	PartitionKeyString = "string"
	PartitionKeyNumber = "number"
	PartitionKeyBool   = "bool"
	PartitionKeyNull   = "null"
)

// ParsePartitionKey converts a textual partition-key value to the given kind. An empty kind
// means string.
func ParsePartitionKey(raw, kind string) (interface{}, error) {
	switch kind {
	case "", PartitionKeyString:
		return raw, nil
	case PartitionKeyNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("partition key %q is not a number", raw)
		}
		return f, nil
	case PartitionKeyBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("partition key %q is not a bool", raw)
		}
		return b, nil
	case PartitionKeyNull:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown partition key kind %q", kind)
}
