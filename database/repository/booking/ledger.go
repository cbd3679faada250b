package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"courtcal/database"
	"courtcal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ScopeVersions reads the ledger version of each scope. A missing ledger reads as 0.
func (repo *MongoBookingRepo) ScopeVersions(ctx context.Context, scopes []string) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	versions := make(map[string]int64, len(scopes))
	for _, s := range scopes {
		versions[s] = 0
	}
	cursor, err := repo.ledgerColl.Find(ctx, bson.M{"_id": bson.M{"$in": scopes}})
	if err != nil {
		return nil, fmt.Errorf("error reading schedule ledgers: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var ledger models.ScopeLedger
		if err := cursor.Decode(&ledger); err != nil {
			return nil, fmt.Errorf("error decoding schedule ledger: %w", err)
		}
		versions[ledger.Scope] = ledger.Version
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return versions, nil
}

// Reserve bumps every ledger in r.Versions, writes the superseded booking and inserts the new
// booking in one transaction. Every write is conditioned on the version read earlier; any
// mismatch aborts the transaction with a ConcurrencyConflictError.
func (repo *MongoBookingRepo) Reserve(ctx context.Context, r models.Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := repo.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	booking := r.Booking.Clone()
	booking.Version = 1
	var superseded models.Booking
	if r.Supersedes != nil {
		superseded = r.Supersedes.Clone()
		superseded.Version = r.SupersedesVersion + 1
	}

	txnFn := func(sc mongo.SessionContext) (interface{}, error) {
		for _, scope := range sortedScopes(r.Versions) {
			if err := repo.bumpLedger(sc, scope, r.Versions[scope]); err != nil {
				return nil, err
			}
		}
		if r.Supersedes != nil {
			res, err := repo.bookingColl.ReplaceOne(sc, bson.M{"id": superseded.ID, "version": r.SupersedesVersion}, superseded)
			if err != nil {
				return nil, fmt.Errorf("replace superseded booking failed: %w", err)
			}
			if res.MatchedCount == 0 {
				return nil, &models.ConcurrencyConflictError{Scope: "booking:" + superseded.ID}
			}
		}
		if _, err := repo.bookingColl.InsertOne(sc, booking); err != nil {
			return nil, fmt.Errorf("insert booking failed: %w", err)
		}
		return nil, nil
	}

	if _, err := sess.WithTransaction(ctx, txnFn); err != nil {
		return reserveError(err)
	}
	r.Booking.Version = booking.Version
	if r.Supersedes != nil {
		r.Supersedes.Version = superseded.Version
	}
	return nil
}

// bumpLedger increments a ledger held at expected. Version 0 means the ledger did not exist
// when read, so it is created; a concurrent creator makes the insert fail on _id.
func (repo *MongoBookingRepo) bumpLedger(sc mongo.SessionContext, scope string, expected int64) error {
	if expected == 0 {
		_, err := repo.ledgerColl.InsertOne(sc, models.ScopeLedger{Scope: scope, Version: 1})
		if err != nil {
			if database.IsDuplicateKey(err) {
				return &models.ConcurrencyConflictError{Scope: scope}
			}
			return fmt.Errorf("create ledger %s failed: %w", scope, err)
		}
		return nil
	}
	res, err := repo.ledgerColl.UpdateOne(sc,
		bson.M{"_id": scope, "version": expected},
		bson.M{"$inc": bson.M{"version": 1}})
	if err != nil {
		return fmt.Errorf("bump ledger %s failed: %w", scope, err)
	}
	if res.MatchedCount == 0 {
		return &models.ConcurrencyConflictError{Scope: scope}
	}
	return nil
}

// reserveError folds the ways a lost race surfaces into ConcurrencyConflictError.
func reserveError(err error) error {
	var cce *models.ConcurrencyConflictError
	switch {
	case errors.As(err, &cce):
		return cce
	case database.IsDuplicateKey(err), database.IsTransientTransaction(err):
		return &models.ConcurrencyConflictError{}
	}
	return fmt.Errorf("booking transaction failed: %w", err)
}

func sortedScopes(versions map[string]int64) []string {
	scopes := make([]string, 0, len(versions))
	for s := range versions {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	return scopes
}
