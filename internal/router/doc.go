// Package router implements the Message Router component.
//
// The Message Router:
//   - Binds connections to roles when they register
//   - Looks up the destination roles of each notification
//   - Fans the unmodified payload out to every destination except the sender
//   - Evicts connections whose sends fail because they are gone
package router
