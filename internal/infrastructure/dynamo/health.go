package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Pinger checks that a table is reachable.
type Pinger struct {
	client    API
	tableName string
}

func NewPinger(client API, tableName string) *Pinger {
	return &Pinger{client: client, tableName: tableName}
}

func (p *Pinger) Ping(ctx context.Context) error {
	_, err := p.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(p.tableName)})
	if err != nil {
		return fmt.Errorf("describe table %s: %w", p.tableName, err)
	}
	return nil
}
