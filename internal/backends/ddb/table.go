package ddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	SKey    = "KV"
	SZset   = "Z"
	SMember = "M"

	skItem = "ITEM"

	kindScalar  = "scalar"
	kindCounter = "counter"
	kindSet     = "set"
	kindZset    = "zset"
	kindZMember = "zmember"
)

func pkKey(key string) string       { return fmt.Sprintf("%s#%s", SKey, key) }
func pkZset(key string) string      { return fmt.Sprintf("%s#%s", SZset, key) }
func skMember(member string) string { return fmt.Sprintf("%s#%s", SMember, member) }

func keyAV(pk, sk string) map[string]ddbTypes.AttributeValue {
	return map[string]ddbTypes.AttributeValue{
		"PK": &ddbTypes.AttributeValueMemberS{Value: pk},
		"SK": &ddbTypes.AttributeValueMemberS{Value: sk},
	}
}

// createTableIfNotExists creates the PK/SK table with on-demand billing. An existing table is fine.
// The `ttl` attribute should be enabled as the table's TTL attribute; reads never rely on it.
func createTableIfNotExists(client *dynamodb.Client, table string) error {
	_, err := client.CreateTable(context.Background(), &dynamodb.CreateTableInput{
		TableName: &table,
		AttributeDefinitions: []ddbTypes.AttributeDefinition{
			{AttributeName: awsString("PK"), AttributeType: ddbTypes.ScalarAttributeTypeS},
			{AttributeName: awsString("SK"), AttributeType: ddbTypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbTypes.KeySchemaElement{
			{AttributeName: awsString("PK"), KeyType: ddbTypes.KeyTypeHash},
			{AttributeName: awsString("SK"), KeyType: ddbTypes.KeyTypeRange},
		},
		BillingMode: ddbTypes.BillingModePayPerRequest,
	})
	var re *ddbTypes.ResourceInUseException
	if err != nil && !errors.As(err, &re) {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}
