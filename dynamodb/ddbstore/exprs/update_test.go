package exprs

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyBuilt(t *testing.T, ub expression.UpdateBuilder, doc Item) Item {
	t.Helper()
	expr, err := expression.NewBuilder().WithUpdate(ub).Build()
	require.NoError(t, err)
	u, err := ParseUpdate(*expr.Update(), Params{Names: expr.Names(), Values: expr.Values()})
	require.NoError(t, err)
	out, err := u.Apply(doc)
	require.NoError(t, err)
	return out
}

func TestUpdate_SetAndRemove(t *testing.T) {
	out := applyBuilt(t, expression.
		Set(expression.Name("status"), expression.Value("DONE")).
		Remove(expression.Name("priority")), taskDoc)

	assert.Equal(t, &types.AttributeValueMemberS{Value: "DONE"}, out["status"])
	assert.NotContains(t, out, "priority")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "TODO"}, taskDoc["status"], "input is not modified")
}

func TestUpdate_Arithmetic(t *testing.T) {
	out := applyBuilt(t, expression.
		Set(expression.Name("priority"), expression.Name("priority").Plus(expression.Value(2))).
		Add(expression.Name("views"), expression.Value(1)), taskDoc)

	assert.Equal(t, &types.AttributeValueMemberN{Value: "5"}, out["priority"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1"}, out["views"])
}

func TestUpdate_Functions(t *testing.T) {
	out := applyBuilt(t, expression.
		Set(expression.Name("tags"), expression.ListAppend(expression.Name("tags"), expression.Value([]string{"p1"}))).
		Set(expression.Name("assigneeId"), expression.IfNotExists(expression.Name("assigneeId"), expression.Value("unassigned"))).
		Set(expression.Name("meta.owner"), expression.Value("bob")), taskDoc)

	tags := out["tags"].(*types.AttributeValueMemberL).Value
	require.Len(t, tags, 3)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "p1"}, tags[2])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "unassigned"}, out["assigneeId"])
	owner := out["meta"].(*types.AttributeValueMemberM).Value["owner"]
	assert.Equal(t, &types.AttributeValueMemberS{Value: "bob"}, owner)
}

func TestUpdate_Errors(t *testing.T) {
	_, err := ParseUpdate("UPSERT a = :v", Params{})
	assert.Error(t, err)

	u, err := ParseUpdate("SET missing.child = :v", Params{Values: map[string]types.AttributeValue{
		":v": &types.AttributeValueMemberS{Value: "x"},
	}})
	require.NoError(t, err)
	_, err = u.Apply(taskDoc)
	assert.Error(t, err, "parent map must exist")
}
