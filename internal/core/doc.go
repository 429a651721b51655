// Package core provides the business logic for loading and editing users and
// their statuses. It has no UI dependencies and works against any
// [store.Store].
//
// # Feeds
//
// A [Feed] is the static mapping from CSV header columns to stored
// attributes, with one validator per column. [UserFeed] and [StatusFeed] are
// registered at init time; [FeedFor] looks one up by collection.
//
//	USER_ID,EMAIL,NAME,LASTNAME
//	evmiles97,eve.miles@uw.edu,Eve,Miles
//
//	STATUS_ID,USER_ID,STATUS_TEXT
//	evmiles97_00001,evmiles97,"Code is finally compiling"
//
// # Loads
//
// [Service.Load] reads and validates the whole feed before it writes
// anything. The first empty cell, unknown column or invalid value aborts the
// load. Valid rows are then inserted in chunks inside one transaction; a row
// whose key is already stored is skipped, and any other storage failure rolls
// back every chunk of the load. Each attempt is appended to the load history.
//
// # Error Handling
//
// Failures are returned as [*Error] values carrying a [Kind], the feed line,
// the field and the value. They match the kind sentinels ([ErrMissingField],
// [ErrValidation], ...) with errors.Is. [MapError] turns any error into a
// coded [UserMessage] for display.
package core
