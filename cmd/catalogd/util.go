package main

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/domain"
)

func decodePayload(raw []byte, out any) error {
	return json.Unmarshal(raw, out)
}

func parseTabularID(raw string) (domain.TabularID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return domain.TabularID{}, err
	}

	return domain.TabularID(id), nil
}
