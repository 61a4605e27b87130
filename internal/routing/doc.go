// Package routing holds the notification routing table: which roles receive
// which notification types. The table is built once at startup and never
// mutated. Types that are not enrolled route nowhere.
package routing
