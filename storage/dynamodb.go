package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"golang.org/x/time/rate"
)

// DynamoDBMaxValueBytes is the largest value that fits in a DynamoDB item,
// whose size is capped at 400KB including the key and other attributes.
const DynamoDBMaxValueBytes = 400<<10 - 1<<10

// DynamoDB is an implementation of Store backed by a DynamoDB table with a
// string partition key "k". The value goes in the binary attribute "va" and
// the deadline, in Unix seconds, in the number attribute "ex", which should
// be the table's TTL attribute. DynamoDB deletes expired items lazily, so
// deadlines are also checked on read.
type DynamoDB struct {
	table string
	opts  options

	// Do throttling on our side based on configured RCUs/WCUs so the
	// client doesn't have to retry.
	getLimiter *rate.Limiter
	putLimiter *rate.Limiter

	ddb *dynamodb.DynamoDB
}

func NewDynamoDB(profile, region, table string, opts ...Option) (*DynamoDB, error) {
	s := &DynamoDB{
		table: table,
		opts:  newOptions(opts),
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewSharedCredentials("", profile),
	})
	if err != nil {
		return nil, err
	}
	s.ddb = dynamodb.New(sess)
	if err := s.configureLimiters(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DynamoDB) configureLimiters() error {
	result, err := s.ddb.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: &s.table,
	})
	if err != nil {
		return err
	}
	var rcus, wcus int64
	if pt := result.Table.ProvisionedThroughput; pt != nil {
		rcus = aws.Int64Value(pt.ReadCapacityUnits)
		wcus = aws.Int64Value(pt.WriteCapacityUnits)
	}
	s.getLimiter = limiterFor(rcus)
	s.putLimiter = limiterFor(wcus)
	return nil
}

// limiterFor allows as many requests per second as capacity units. Tables
// billed on demand report zero units and are not throttled.
func limiterFor(units int64) *rate.Limiter {
	if units <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(1_000_000/units)*time.Microsecond), 1)
}

func (s *DynamoDB) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	if err := s.putLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err = s.ddb.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      dynamoDBItem(key, value, deadline(s.opts.now(), ttl)),
	})
	if err != nil {
		return fmt.Errorf("could not put %.40q: %w", key, err)
	}
	return nil
}

func (s *DynamoDB) Get(ctx context.Context, key string) (value []byte, err error) {
	value, _, _, err = s.getWithTTL(ctx, key)
	return value, err
}

func (s *DynamoDB) getWithTTL(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	if err := s.getLimiter.Wait(ctx); err != nil {
		return nil, 0, false, err
	}
	output, err := s.ddb.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      &s.table,
		ConsistentRead: aws.Bool(true),
		Key: map[string]*dynamodb.AttributeValue{
			"k": {S: aws.String(key)},
		},
	})
	if err != nil {
		return nil, 0, false, err
	}
	now := s.opts.now()
	value, d, err := fromDynamoDBItem(key, output.Item, now)
	if err != nil {
		return nil, 0, false, err
	}
	return value, remaining(d, now), true, nil
}

func dynamoDBItem(key string, value []byte, deadline time.Time) map[string]*dynamodb.AttributeValue {
	item := map[string]*dynamodb.AttributeValue{
		"k":  {S: aws.String(key)},
		"va": {B: dup(value)},
	}
	if !deadline.IsZero() {
		// Round up, so that an item is never deleted before its deadline.
		secs := deadline.Unix()
		if deadline.Nanosecond() > 0 {
			secs++
		}
		item["ex"] = &dynamodb.AttributeValue{N: aws.String(strconv.FormatInt(secs, 10))}
	}
	return item
}

// fromDynamoDBItem returns the value held by item and its deadline, zero if
// it has none.
func fromDynamoDBItem(key string, item map[string]*dynamodb.AttributeValue, now time.Time) (value []byte, deadline time.Time, err error) {
	if item == nil {
		return nil, time.Time{}, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	if ex, ok := item["ex"]; ok && ex.N != nil {
		secs, err := strconv.ParseInt(*ex.N, 10, 64)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%.40q: bad deadline %q: %w", key, *ex.N, err)
		}
		deadline = time.Unix(secs, 0)
		if expired(deadline, now) {
			return nil, time.Time{}, fmt.Errorf("%.40q: expired: %w", key, ErrNotFound)
		}
	}
	if va, ok := item["va"]; ok {
		value = va.B
	}
	if value == nil {
		value = []byte{}
	}
	return value, deadline, nil
}
