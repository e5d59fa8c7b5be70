package dynamo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// compositeKey builds a DynamoDB primary key with two string attributes (PK + SK).
func compositeKey(pkName, pkValue, skName, skValue string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		pkName: &types.AttributeValueMemberS{Value: pkValue},
		skName: &types.AttributeValueMemberS{Value: skValue},
	}
}

type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr turns field->value pairs into a SET clause and the given
// attribute names into a REMOVE clause. Keys are sorted so the output is stable.
func buildUpdateExpr(set map[string]interface{}, remove ...string) (updateExpr, error) {
	ue := updateExpr{
		Names:  make(map[string]string),
		Values: make(map[string]types.AttributeValue),
	}
	if len(set) == 0 && len(remove) == 0 {
		return ue, fmt.Errorf("no fields to update")
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	i := 0
	if len(keys) > 0 {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			av, err := attributevalue.Marshal(set[k])
			if err != nil {
				return updateExpr{}, fmt.Errorf("marshal field %s: %w", k, err)
			}
			ue.Names[nameKey] = k
			ue.Values[valueKey] = av
			parts = append(parts, nameKey+" = "+valueKey)
			i++
		}
		clauses = append(clauses, "SET "+strings.Join(parts, ", "))
	}

	if len(remove) > 0 {
		sorted := append([]string(nil), remove...)
		sort.Strings(sorted)
		parts := make([]string, 0, len(sorted))
		for _, k := range sorted {
			nameKey := fmt.Sprintf("#f%d", i)
			ue.Names[nameKey] = k
			parts = append(parts, nameKey)
			i++
		}
		clauses = append(clauses, "REMOVE "+strings.Join(parts, ", "))
	}

	ue.Expr = strings.Join(clauses, " ")
	if len(ue.Values) == 0 {
		ue.Values = nil
	}
	return ue, nil
}
