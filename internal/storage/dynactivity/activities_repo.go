package dynactivity

import (
	"context"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"
)

const pageSize = 100

func (s *Storage) InsertActivity(ctx context.Context, a models.StoredActivity) (bool, error) {
	av, err := attributevalue.MarshalMap(toItem(a))
	if err != nil {
		return false, errors.Wrap(err, "marshal activity")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(sk)"),
	})
	var exists *dynamodbtypes.ConditionalCheckFailedException
	if errors.As(err, &exists) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "put activity")
	}
	return true, nil
}

func (s *Storage) ListActivities(ctx context.Context, userID string, limit, offset int) ([]models.StoredActivity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	out := []models.StoredActivity{}
	skipped := 0
	err := s.queryUser(ctx, userID, false, func(it item) bool {
		if skipped < offset {
			skipped++
			return true
		}
		out = append(out, it.activity())
		return len(out) < limit
	})
	return out, err
}

func (s *Storage) LastLocation(ctx context.Context, userID string) (models.LastLocation, bool, error) {
	var found *item
	err := s.queryUser(ctx, userID, true, func(it item) bool {
		found = &it
		return false
	})
	if err != nil || found == nil {
		return models.LastLocation{}, false, err
	}
	return models.LastLocation{
		UserID:       found.UserID,
		Latitude:     *found.Latitude,
		Longitude:    *found.Longitude,
		Accuracy:     found.Accuracy,
		LocationName: found.LocationName,
		City:         found.City,
		Country:      found.Country,
		Source:       found.Source,
		ActivityID:   found.ID,
		OccurredAt:   found.OccurredAt,
	}, true, nil
}

// queryUser walks a user's activities newest first until visit returns false.
func (s *Storage) queryUser(ctx context.Context, userID string, locatedOnly bool, visit func(item) bool) error {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":u": &dynamodbtypes.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(pageSize),
	}
	if locatedOnly {
		in.FilterExpression = aws.String("attribute_exists(lat)")
	}

	for {
		res, err := s.client.Query(ctx, in)
		if err != nil {
			return errors.Wrap(err, "query activities")
		}
		for _, av := range res.Items {
			var it item
			if err := attributevalue.UnmarshalMap(av, &it); err != nil {
				return errors.Wrap(err, "unmarshal activity")
			}
			if !visit(it) {
				return nil
			}
		}
		if len(res.LastEvaluatedKey) == 0 {
			return nil
		}
		in.ExclusiveStartKey = res.LastEvaluatedKey
	}
}
