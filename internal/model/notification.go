package model

import "time"

// NotificationMessage is a pending entry in a user's mailbox, stored in
// the `user_logs` table.  It is created by whoever towed the recipient's
// vehicle and deleted once the recipient drains the mailbox.
//
// Fields:
//  ID          – primary key identifier, increasing with insertion.
//  RecipientID – user who will read the message.
//  Text        – human readable message.
//  CreatedAt   – when the message was enqueued (UTC).
type NotificationMessage struct {
    ID          uint64    // user_logs.id
    RecipientID uint64    // user_logs.user_id
    Text        string    // user_logs.message
    CreatedAt   time.Time // user_logs.created_at
}
