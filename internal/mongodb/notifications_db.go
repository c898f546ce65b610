package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	NotificationTypeGeneric    = "generic"
	NotificationTypeInvitation = "invitation"

	NotificationStatusUnread = "unread"
	NotificationStatusRead   = "read"
)

// ----- Types for the database -----

type NotificationDb struct {
	Id          string    `json:"id" bson:"id"`
	MessageBody string    `json:"messageBody" bson:"messageBody"`
	Title       string    `json:"title" bson:"title"`
	Date        time.Time `json:"date" bson:"date"`
	Type        string    `json:"type" bson:"type"`
	Status      string    `json:"status" bson:"status"`

	// Invitation only
	ComTag    string `json:"comTag,omitempty" bson:"comTag,omitempty"`
	ComName   string `json:"comName,omitempty" bson:"comName,omitempty"`
	Responded *bool  `json:"responded,omitempty" bson:"responded,omitempty"`
}

type InboxDb struct {
	UserId        string           `json:"userId" bson:"_id"`
	Notifications []NotificationDb `json:"notifications" bson:"notifications"`
}

func (in InboxDb) Find(id string) (NotificationDb, bool) {
	for _, n := range in.Notifications {
		if n.Id == id {
			return n, true
		}
	}
	return NotificationDb{}, false
}

// pendingInvitationMatch matches an unresponded invitation with the same
// content as n.
func pendingInvitationMatch(n NotificationDb) bson.M {
	return bson.M{
		"type":        NotificationTypeInvitation,
		"title":       n.Title,
		"messageBody": n.MessageBody,
		"comTag":      n.ComTag,
		"responded":   false,
	}
}

// ----- Methods for the database -----

func (db *DB) GetInbox(ctx context.Context, userId string) (InboxDb, error) {
	coll := db.Collection(NotificationsCollection)

	var inbox InboxDb
	if err := coll.FindOne(ctx, bson.M{"_id": userId}).Decode(&inbox); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return InboxDb{UserId: userId, Notifications: []NotificationDb{}}, nil
		}
		return InboxDb{}, err
	}
	if inbox.Notifications == nil {
		inbox.Notifications = []NotificationDb{}
	}
	return inbox, nil
}

func (db *DB) PushNotification(ctx context.Context, userId string, n NotificationDb) error {
	coll := db.Collection(NotificationsCollection)

	_, err := coll.UpdateOne(
		ctx,
		bson.M{"_id": userId},
		bson.M{"$push": bson.M{"notifications": n}},
		options.Update().SetUpsert(true),
	)
	return err
}

// TouchPendingInvitation moves the date of an unresponded invitation with the
// same content as n to at. It reports whether such an invitation exists.
func (db *DB) TouchPendingInvitation(ctx context.Context, userId string, n NotificationDb, at time.Time) (bool, error) {
	coll := db.Collection(NotificationsCollection)

	result, err := coll.UpdateOne(
		ctx,
		bson.M{"_id": userId, "notifications": bson.M{"$elemMatch": pendingInvitationMatch(n)}},
		bson.M{"$set": bson.M{"notifications.$.date": at}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

// PushInvitationIfAbsent appends n unless an unresponded invitation with the
// same content is already in the inbox. The check and the push are a single
// update, so two concurrent identical invitations cannot both be appended.
func (db *DB) PushInvitationIfAbsent(ctx context.Context, userId string, n NotificationDb) (bool, error) {
	coll := db.Collection(NotificationsCollection)

	filter := bson.M{
		"_id":           userId,
		"notifications": bson.M{"$not": bson.M{"$elemMatch": pendingInvitationMatch(n)}},
	}
	_, err := coll.UpdateOne(
		ctx,
		filter,
		bson.M{"$push": bson.M{"notifications": n}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// The inbox exists but holds a matching invitation, so the upsert
		// tried to insert a second document with the same _id.
		if IsDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, userId, id string) error {
	coll := db.Collection(NotificationsCollection)

	result, err := coll.UpdateOne(
		ctx,
		bson.M{"_id": userId, "notifications.id": id},
		bson.M{"$set": bson.M{"notifications.$.status": NotificationStatusRead}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (db *DB) RemoveNotification(ctx context.Context, userId, id string) error {
	coll := db.Collection(NotificationsCollection)

	result, err := coll.UpdateOne(
		ctx,
		bson.M{"_id": userId, "notifications.id": id},
		bson.M{"$pull": bson.M{"notifications": bson.M{"id": id}}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// MarkInvitationAccepted flags an unresponded invitation as read and
// responded. It returns ErrRecordNotFound when no such invitation exists.
func (db *DB) MarkInvitationAccepted(ctx context.Context, userId, id string) error {
	coll := db.Collection(NotificationsCollection)

	filter := bson.M{
		"_id": userId,
		"notifications": bson.M{"$elemMatch": bson.M{
			"id":        id,
			"type":      NotificationTypeInvitation,
			"responded": false,
		}},
	}
	update := bson.M{"$set": bson.M{
		"notifications.$.status":    NotificationStatusRead,
		"notifications.$.responded": true,
	}}

	result, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}
