package dynactivity

import (
	"context"
	"fmt"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Storage keeps activities in one table: partition key user_id, sort key
// "<occurred_at>#<id>", so a user's activities read back in time order.
type Storage struct {
	client    dynamoAPI
	tableName string
}

func New(ctx context.Context, region, endpoint, tableName string) (*Storage, error) {
	if region == "" {
		region = "us-east-1"
	}
	if tableName == "" {
		tableName = "activities"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return newWithClient(client, tableName), nil
}

func newWithClient(client dynamoAPI, tableName string) *Storage {
	return &Storage{client: client, tableName: tableName}
}

type item struct {
	UserID string `dynamodbav:"user_id"`
	SK     string `dynamodbav:"sk"`

	ID         string `dynamodbav:"id"`
	Type       string `dynamodbav:"type"`
	Title      string `dynamodbav:"title"`
	EntityType string `dynamodbav:"entity_type,omitempty"`
	EntityID   string `dynamodbav:"entity_id,omitempty"`
	Details    string `dynamodbav:"details"`

	Latitude     *float64 `dynamodbav:"lat,omitempty"`
	Longitude    *float64 `dynamodbav:"lng,omitempty"`
	Accuracy     *float64 `dynamodbav:"accuracy,omitempty"`
	LocationName string   `dynamodbav:"location_name,omitempty"`
	City         string   `dynamodbav:"city,omitempty"`
	Country      string   `dynamodbav:"country,omitempty"`
	Source       string   `dynamodbav:"source,omitempty"`

	Device         string `dynamodbav:"device,omitempty"`
	Browser        string `dynamodbav:"browser,omitempty"`
	BrowserVersion string `dynamodbav:"browser_version,omitempty"`
	OS             string `dynamodbav:"os,omitempty"`
	RiskScore      int    `dynamodbav:"risk_score"`

	OccurredAt time.Time `dynamodbav:"occurred_at"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
}

func sortKey(occurredAt time.Time, id string) string {
	return fmt.Sprintf("%s#%s", occurredAt.UTC().Format("2006-01-02T15:04:05.000000000Z"), id)
}

func toItem(a models.StoredActivity) item {
	return item{
		UserID:         a.UserID,
		SK:             sortKey(a.OccurredAt, a.ID),
		ID:             a.ID,
		Type:           string(a.Type),
		Title:          a.Title,
		EntityType:     a.EntityType,
		EntityID:       a.EntityID,
		Details:        a.Details,
		Latitude:       a.Latitude,
		Longitude:      a.Longitude,
		Accuracy:       a.Accuracy,
		LocationName:   a.LocationName,
		City:           a.City,
		Country:        a.Country,
		Source:         a.Source,
		Device:         a.Device,
		Browser:        a.Browser,
		BrowserVersion: a.BrowserVersion,
		OS:             a.OS,
		RiskScore:      a.RiskScore,
		OccurredAt:     a.OccurredAt.UTC(),
		CreatedAt:      a.CreatedAt.UTC(),
	}
}

func (it item) activity() models.StoredActivity {
	return models.StoredActivity{
		ID:             it.ID,
		Type:           models.ActivityType(it.Type),
		Title:          it.Title,
		UserID:         it.UserID,
		EntityType:     it.EntityType,
		EntityID:       it.EntityID,
		Details:        it.Details,
		Latitude:       it.Latitude,
		Longitude:      it.Longitude,
		Accuracy:       it.Accuracy,
		LocationName:   it.LocationName,
		City:           it.City,
		Country:        it.Country,
		Source:         it.Source,
		Device:         it.Device,
		Browser:        it.Browser,
		BrowserVersion: it.BrowserVersion,
		OS:             it.OS,
		RiskScore:      it.RiskScore,
		OccurredAt:     it.OccurredAt,
		CreatedAt:      it.CreatedAt,
	}
}

// EnsureTable creates the table if it does not exist yet (local DynamoDB).
func (s *Storage) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamodbtypes.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: dynamodbtypes.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: dynamodbtypes.KeyTypeRange},
		},
		BillingMode: dynamodbtypes.BillingModePayPerRequest,
	})
	var inUse *dynamodbtypes.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return errors.Wrap(err, "create table")
	}
	return nil
}
