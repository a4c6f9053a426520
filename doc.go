// Package modelgraph turns declarative data-model descriptions into GraphQL
// schema types, argument sets and resolvers for github.com/graphql-go/graphql.
//
// Given a model (see package model) and a set of declarative options, the
// type factories in package types synthesize output, input and list object
// types; package fields binds them to resolvers with filtering and
// pagination; and package mutation composes create, update, delete, retrieve
// and list operations driven by a validation serializer.
//
// The synthesis is a pure, one-shot transformation executed at schema-build
// time. Per-request work is limited to the bound resolvers, which query the
// model backend through the narrow contracts in package model.
//
// The root package carries the cross-cutting pieces: the error taxonomy,
// the resolver result cache, and response helpers.
package modelgraph
