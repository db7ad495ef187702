// Copyright 2025 ModelMesh
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresModelStore_GetModelConfig(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT provider, model_name`).
		WithArgs("fast-model").
		WillReturnRows(sqlmock.NewRows([]string{"provider", "model_name"}).
			AddRow("openai", "gpt-4"))

	store := NewPostgresModelStore(db)
	cfg, err := store.GetModelConfig(context.Background(), "fast-model")

	require.NoError(t, err)
	assert.Equal(t, ProviderTypeOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4", cfg.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresModelStore_UnknownAlias(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT provider, model_name`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"provider", "model_name"}))

	store := NewPostgresModelStore(db)
	_, err = store.GetModelConfig(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, IsConfigNotFound(err))
	assert.Contains(t, err.Error(), "ghost")
}

func TestPostgresModelStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT provider, model_name`).
		WithArgs("fast-model").
		WillReturnError(errors.New("connection reset"))

	store := NewPostgresModelStore(db)
	_, err = store.GetModelConfig(context.Background(), "fast-model")

	require.Error(t, err)
	assert.False(t, IsConfigNotFound(err))
}

func TestMemoryModelStore(t *testing.T) {
	store := NewMemoryModelStore(map[string]ModelConfig{
		"local-llama": {Provider: ProviderTypeOllama, Name: "llama3"},
	})

	cfg, err := store.GetModelConfig(context.Background(), "local-llama")
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Name)

	_, err = store.GetModelConfig(context.Background(), "missing")
	assert.True(t, IsConfigNotFound(err))

	store.Set("fast-model", ModelConfig{Provider: ProviderTypeOpenAI, Name: "gpt-4"})
	cfg, err = store.GetModelConfig(context.Background(), "fast-model")
	require.NoError(t, err)
	assert.Equal(t, ProviderTypeOpenAI, cfg.Provider)
}
