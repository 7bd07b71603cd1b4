// Package storage persists the little state the bot keeps across restarts:
// the groups it has been added to and an audit trail of operator actions.
package storage
