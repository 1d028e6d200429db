package ddb

import (
	"context"
	"errors"
	"kelink/internal/types"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store implements ports.KV on a single DynamoDB table.
// Every key is one item (PK=KV#<key>, SK=ITEM). Sorted-set members live under PK=Z#<key>.
// DynamoDB deletes expired items lazily, so every read filters on the `ttl` attribute itself.
type Store struct {
	table string
	cli   *dynamodb.Client
	now   func() time.Time
}

type kvItem struct {
	PK        string   `dynamodbav:"PK"`
	SK        string   `dynamodbav:"SK"`
	Kind      string   `dynamodbav:"kind"`
	Val       string   `dynamodbav:"val,omitempty"`
	N         int64    `dynamodbav:"n,omitempty"`
	Members   []string `dynamodbav:"members,stringset,omitempty"`
	Member    string   `dynamodbav:"member,omitempty"`
	Score     int64    `dynamodbav:"score,omitempty"`
	ExpiresAt int64    `dynamodbav:"ttl,omitempty"`
}

func NewStore(table string, cli *dynamodb.Client) (*Store, error) {
	if err := createTableIfNotExists(cli, table); err != nil {
		return nil, err
	}
	return &Store{table: table, cli: cli, now: time.Now}, nil
}

func (it *kvItem) live(now time.Time) bool {
	return it.ExpiresAt == 0 || it.ExpiresAt > now.Unix()
}

// liveOrAbsent is the condition under which an existing item may be updated in place.
const liveOrAbsent = "attribute_not_exists(PK) OR attribute_not_exists(#ttl) OR #ttl > :now"

func (s *Store) load(ctx context.Context, pk, sk string) (*kvItem, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.table,
		Key:            keyAV(pk, sk),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var it kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	if !it.live(s.now()) {
		return nil, nil
	}
	return &it, nil
}

func (s *Store) put(ctx context.Context, it kvItem, condition string, values map[string]ddbTypes.AttributeValue) (bool, error) {
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return false, err
	}
	in := &dynamodb.PutItemInput{TableName: &s.table, Item: av}
	if condition != "" {
		in.ConditionExpression = awsString(condition)
		in.ExpressionAttributeNames = map[string]string{"#ttl": "ttl"}
		in.ExpressionAttributeValues = values
	}
	if _, err := s.cli.PutItem(ctx, in); err != nil {
		var cc *ddbTypes.ConditionalCheckFailedException
		if errorAs(err, &cc) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	it, err := s.load(ctx, pkKey(key), skItem)
	if err != nil {
		return "", false, storeErr(err, "get", key)
	}
	if it == nil {
		return "", false, nil
	}
	if it.Kind == kindCounter {
		return itoa(it.N), true, nil
	}
	return it.Val, true, nil
}

func (s *Store) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.put(ctx, kvItem{
		PK:        pkKey(key),
		SK:        skItem,
		Kind:      kindScalar,
		Val:       value,
		ExpiresAt: s.expiresAt(ttl),
	}, "", nil)
	if err != nil {
		return storeErr(err, "set", key)
	}
	return nil
}

func (s *Store) SetNX(ctx context.Context, key, value string) (bool, error) {
	ok, err := s.put(ctx, kvItem{
		PK:   pkKey(key),
		SK:   skItem,
		Kind: kindScalar,
		Val:  value,
	}, "attribute_not_exists(PK) OR (attribute_exists(#ttl) AND #ttl <= :now)", s.nowValues())
	if err != nil {
		return false, storeErr(err, "setnx", key)
	}
	return ok, nil
}

// IncrTTL adds to a live counter in place; an expired counter is replaced with a fresh one.
func (s *Store) IncrTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	values := s.nowValues()
	values[":one"] = &ddbTypes.AttributeValueMemberN{Value: "1"}
	values[":kind"] = &ddbTypes.AttributeValueMemberS{Value: kindCounter}
	values[":ttl"] = &ddbTypes.AttributeValueMemberN{Value: itoa(s.expiresAt(ttl))}
	out, err := s.cli.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &s.table,
		Key:              keyAV(pkKey(key), skItem),
		UpdateExpression: awsString("SET #kind = :kind, #ttl = :ttl ADD #n :one"),
		ExpressionAttributeNames: map[string]string{
			"#kind": "kind",
			"#ttl":  "ttl",
			"#n":    "n",
		},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString(liveOrAbsent),
		ReturnValues:              ddbTypes.ReturnValueUpdatedNew,
	})
	if err != nil {
		var cc *ddbTypes.ConditionalCheckFailedException
		if !errorAs(err, &cc) {
			return 0, storeErr(err, "incr", key)
		}
		_, err = s.put(ctx, kvItem{
			PK:        pkKey(key),
			SK:        skItem,
			Kind:      kindCounter,
			N:         1,
			ExpiresAt: s.expiresAt(ttl),
		}, "", nil)
		if err != nil {
			return 0, storeErr(err, "incr", key)
		}
		return 1, nil
	}
	var n int64
	if err := attributevalue.Unmarshal(out.Attributes["n"], &n); err != nil {
		return 0, storeErr(err, "incr", key)
	}
	return n, nil
}

// Expire only touches live items. Stamping a sorted set also stamps members added since the last
// Expire call, so every member expires no later than ttl after its insertion.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	values := s.nowValues()
	values[":ttl"] = &ddbTypes.AttributeValueMemberN{Value: itoa(s.expiresAt(ttl))}
	out, err := s.cli.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &s.table,
		Key:                       keyAV(pkKey(key), skItem),
		UpdateExpression:          awsString("SET #ttl = :ttl"),
		ExpressionAttributeNames:  map[string]string{"#ttl": "ttl"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("attribute_exists(PK) AND (attribute_not_exists(#ttl) OR #ttl > :now)"),
		ReturnValues:              ddbTypes.ReturnValueAllNew,
	})
	if err != nil {
		var cc *ddbTypes.ConditionalCheckFailedException
		if errorAs(err, &cc) {
			return nil
		}
		return storeErr(err, "expire", key)
	}
	var it kvItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return storeErr(err, "expire", key)
	}
	if it.Kind == kindZset {
		if err := s.stampMembers(ctx, key, it.ExpiresAt); err != nil {
			return storeErr(err, "expire", key)
		}
	}
	return nil
}

func (s *Store) SAdd(ctx context.Context, key, member string) error {
	values := s.nowValues()
	values[":kind"] = &ddbTypes.AttributeValueMemberS{Value: kindSet}
	values[":m"] = &ddbTypes.AttributeValueMemberSS{Value: []string{member}}
	_, err := s.cli.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &s.table,
		Key:              keyAV(pkKey(key), skItem),
		UpdateExpression: awsString("SET #kind = :kind ADD #members :m"),
		ExpressionAttributeNames: map[string]string{
			"#kind":    "kind",
			"#members": "members",
			"#ttl":     "ttl",
		},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString(liveOrAbsent),
	})
	if err != nil {
		var cc *ddbTypes.ConditionalCheckFailedException
		if !errorAs(err, &cc) {
			return storeErr(err, "sadd", key)
		}
		if _, err := s.put(ctx, kvItem{
			PK:      pkKey(key),
			SK:      skItem,
			Kind:    kindSet,
			Members: []string{member},
		}, "", nil); err != nil {
			return storeErr(err, "sadd", key)
		}
	}
	return nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	it, err := s.load(ctx, pkKey(key), skItem)
	if err != nil {
		return false, storeErr(err, "sismember", key)
	}
	if it == nil {
		return false, nil
	}
	return slices.Contains(it.Members, member), nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	it, err := s.load(ctx, pkKey(key), skItem)
	if err != nil {
		return nil, storeErr(err, "smembers", key)
	}
	if it == nil {
		return nil, nil
	}
	return it.Members, nil
}

func (s *Store) ZAdd(ctx context.Context, key, member string, score int64) error {
	values := s.nowValues()
	values[":kind"] = &ddbTypes.AttributeValueMemberS{Value: kindZset}
	_, err := s.cli.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &s.table,
		Key:                       keyAV(pkKey(key), skItem),
		UpdateExpression:          awsString("SET #kind = :kind"),
		ExpressionAttributeNames:  map[string]string{"#kind": "kind", "#ttl": "ttl"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString(liveOrAbsent),
	})
	if err != nil {
		var cc *ddbTypes.ConditionalCheckFailedException
		if !errorAs(err, &cc) {
			return storeErr(err, "zadd", key)
		}
		if _, err := s.put(ctx, kvItem{PK: pkKey(key), SK: skItem, Kind: kindZset}, "", nil); err != nil {
			return storeErr(err, "zadd", key)
		}
	}
	if _, err := s.put(ctx, kvItem{
		PK:     pkZset(key),
		SK:     skMember(member),
		Kind:   kindZMember,
		Member: member,
		Score:  score,
	}, "", nil); err != nil {
		return storeErr(err, "zadd", key)
	}
	return nil
}

func (s *Store) ZRangeAfter(ctx context.Context, key string, after, until int64) ([]string, error) {
	header, err := s.load(ctx, pkKey(key), skItem)
	if err != nil {
		return nil, storeErr(err, "zrange", key)
	}
	if header == nil {
		return nil, nil
	}
	items, err := s.members(ctx, key, "#score > :after AND #score <= :until", map[string]ddbTypes.AttributeValue{
		":after": &ddbTypes.AttributeValueMemberN{Value: itoa(after)},
		":until": &ddbTypes.AttributeValueMemberN{Value: itoa(until)},
	}, map[string]string{"#score": "score"})
	if err != nil {
		return nil, storeErr(err, "zrange", key)
	}
	now := s.now()
	live := items[:0]
	for _, it := range items {
		if it.live(now) {
			live = append(live, it)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].Score != live[j].Score {
			return live[i].Score < live[j].Score
		}
		return live[i].Member < live[j].Member
	})
	out := make([]string, 0, len(live))
	for _, it := range live {
		out = append(out, it.Member)
	}
	return out, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: &s.table,
			Key:       keyAV(pkKey(key), skItem),
		}); err != nil {
			return storeErr(err, "del", key)
		}
		items, err := s.members(ctx, key, "", nil, nil)
		if err != nil {
			return storeErr(err, "del", key)
		}
		for _, it := range items {
			if _, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: &s.table,
				Key:       keyAV(it.PK, it.SK),
			}); err != nil {
				return storeErr(err, "del", key)
			}
		}
	}
	return nil
}

// members queries the sorted-set member items of key, with an optional filter.
func (s *Store) members(ctx context.Context, key, filter string,
	values map[string]ddbTypes.AttributeValue, names map[string]string) ([]kvItem, error) {
	av := map[string]ddbTypes.AttributeValue{
		":pk": &ddbTypes.AttributeValueMemberS{Value: pkZset(key)},
	}
	for k, v := range values {
		av[k] = v
	}
	in := &dynamodb.QueryInput{
		TableName:                 &s.table,
		KeyConditionExpression:    awsString("PK = :pk"),
		ExpressionAttributeValues: av,
		ConsistentRead:            awsBool(true),
	}
	if filter != "" {
		in.FilterExpression = awsString(filter)
		in.ExpressionAttributeNames = names
	}
	var items []kvItem
	p := dynamodb.NewQueryPaginator(s.cli, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []kvItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}

func (s *Store) stampMembers(ctx context.Context, key string, expiresAt int64) error {
	items, err := s.members(ctx, key, "attribute_not_exists(#ttl)", nil, map[string]string{"#ttl": "ttl"})
	if err != nil {
		return err
	}
	for _, it := range items {
		_, err := s.cli.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                &s.table,
			Key:                      keyAV(it.PK, it.SK),
			UpdateExpression:         awsString("SET #ttl = :ttl"),
			ExpressionAttributeNames: map[string]string{"#ttl": "ttl"},
			ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
				":ttl": &ddbTypes.AttributeValueMemberN{Value: itoa(expiresAt)},
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) expiresAt(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).Unix()
}

func (s *Store) nowValues() map[string]ddbTypes.AttributeValue {
	return map[string]ddbTypes.AttributeValue{
		":now": &ddbTypes.AttributeValueMemberN{Value: itoa(s.now().Unix())},
	}
}

func storeErr(err error, op, key string) error {
	return types.Err(types.ErrStoreUnavailable, err, "ddb %s %s", op, key)
}

func itoa(i int64) string { return strconv.FormatInt(i, 10) }

func awsString(s string) *string         { return &s }
func awsBool(b bool) *bool               { return &b }
func errorAs(err error, target any) bool { return errors.As(err, target) }
