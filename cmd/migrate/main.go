// Copyright 2026 The OpenTrusty Authors
//
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

// Command migrate applies the pgmodel reference schema to a PostgreSQL
// database. The connection string is never hardcoded: it comes from the
// first command-line argument or the DATABASE_URL environment variable.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/oauthforge/oauth2/examplemodel/pgmodel"
)

func main() {
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		dsn = os.Args[1]
	}
	if dsn == "" {
		log.Fatal("no database connection string: pass one as an argument or set DATABASE_URL")
	}

	db, err := pgmodel.New(ctx, pgmodel.Config{DSN: dsn})
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	fmt.Println("connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	fmt.Println("schema applied successfully")
}
