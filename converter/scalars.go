package converter

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// UUID is a scalar carrying RFC 4122 identifiers as strings.
var UUID = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "UUID",
	Description: "RFC 4122 universally unique identifier",
	Serialize: func(value any) any {
		switch v := value.(type) {
		case uuid.UUID:
			return v.String()
		case *uuid.UUID:
			if v == nil {
				return nil
			}
			return v.String()
		case string:
			return v
		case []byte:
			if id, err := uuid.FromBytes(v); err == nil {
				return id.String()
			}
		}
		return nil
	},
	ParseValue: func(value any) any {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil
		}
		return id
	},
	ParseLiteral: func(valueAST ast.Value) any {
		if sv, ok := valueAST.(*ast.StringValue); ok {
			if id, err := uuid.Parse(sv.Value); err == nil {
				return id
			}
		}
		return nil
	},
})

// Binary is a scalar exposing binary model fields as hex strings.
var Binary = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Binary",
	Description: "Binary value in hexadecimal string form",
	Serialize: func(value any) any {
		switch v := value.(type) {
		case []byte:
			return hex.EncodeToString(v)
		case string:
			return hex.EncodeToString([]byte(v))
		}
		return nil
	},
	ParseValue: func(value any) any {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil
		}
		return b
	},
	ParseLiteral: func(valueAST ast.Value) any {
		if sv, ok := valueAST.(*ast.StringValue); ok {
			if b, err := hex.DecodeString(sv.Value); err == nil {
				return b
			}
		}
		return nil
	},
})

func enumValueName(value string) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-('a'-'A'))
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	name := string(out)
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = fmt.Sprintf("V_%s", name)
	}
	return name
}
