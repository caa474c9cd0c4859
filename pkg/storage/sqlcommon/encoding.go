package sqlcommon

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

func encodeAttributes(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return data, nil
}

func scanDocs(rows *sql.Rows) ([]*core.Doc, error) {
	var docs []*core.Doc
	for rows.Next() {
		var (
			workspace, domain, id, class, space, modifiedBy, seq string
			modifiedOn                                           int64
			attrs                                                []byte
		)
		if err := rows.Scan(&workspace, &domain, &id, &class, &space, &modifiedBy, &modifiedOn, &seq, &attrs); err != nil {
			return nil, handleSQLError(err)
		}
		doc := &core.Doc{
			ID:         core.Ref(id),
			Class:      core.Ref(class),
			Space:      core.Ref(space),
			ModifiedBy: core.Ref(modifiedBy),
			ModifiedOn: modifiedOn,
		}
		if err := json.Unmarshal(attrs, &doc.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes of %q: %w", id, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, handleSQLError(err)
	}
	return docs, nil
}

func handleSQLError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("sql error: %w", err)
}
