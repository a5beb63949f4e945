package events

import "time"

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation. Errors holds
// request and field errors; a request that failed before execution has a
// nil Data.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	HasData       bool
	Duration      time.Duration
}
