package adminserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/halvardsen/pagepool/pkg/bufferpool"
)

// newIntrospectionSchema builds a read-only GraphQL schema over a
// ParallelPool's Stats. There are no mutations: the GraphQL API never
// lets a client drive pool operations, only observe them.
func newIntrospectionSchema(pool *bufferpool.ParallelPool) (graphql.Schema, error) {
	shardType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Shard",
		Fields: graphql.Fields{
			"size":           &graphql.Field{Type: graphql.Int},
			"framesFree":     &graphql.Field{Type: graphql.Int},
			"framesPinned":   &graphql.Field{Type: graphql.Int},
			"framesResident": &graphql.Field{Type: graphql.Int},
			"hits":           &graphql.Field{Type: graphql.Int},
			"misses":         &graphql.Field{Type: graphql.Int},
			"evictions":      &graphql.Field{Type: graphql.Int},
		},
	})

	poolStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PoolStats",
		Fields: graphql.Fields{
			"shardCount": &graphql.Field{Type: graphql.Int},
			"totals":     &graphql.Field{Type: shardType},
			"shards":     &graphql.Field{Type: graphql.NewList(shardType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"poolStats": &graphql.Field{
				Type: poolStatsType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return statsResponse(pool), nil
				},
			},
			"shard": &graphql.Field{
				Type: shardType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					stats := pool.Stats()
					if id < 0 || id >= len(stats.Shards) {
						return nil, fmt.Errorf("shard %d out of range [0,%d)", id, len(stats.Shards))
					}
					return shardResponse(stats.Shards[id]), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

func shardResponse(s bufferpool.Stats) map[string]interface{} {
	return map[string]interface{}{
		"size":           s.Size,
		"framesFree":     s.FramesFree,
		"framesPinned":   s.FramesPinned,
		"framesResident": s.FramesResident,
		"hits":           s.Hits,
		"misses":         s.Misses,
		"evictions":      s.Evictions,
	}
}

func statsResponse(pool *bufferpool.ParallelPool) map[string]interface{} {
	stats := pool.Stats()
	shards := make([]map[string]interface{}, len(stats.Shards))
	for i, s := range stats.Shards {
		shards[i] = shardResponse(s)
	}
	return map[string]interface{}{
		"shardCount": pool.ShardCount(),
		"totals":     shardResponse(stats.Totals),
		"shards":     shards,
	}
}

// graphQLHandler is an HTTP handler for introspection GraphQL requests.
type graphQLHandler struct {
	schema graphql.Schema
}

func newGraphQLHandler(pool *bufferpool.ParallelPool) (*graphQLHandler, error) {
	schema, err := newIntrospectionSchema(pool)
	if err != nil {
		return nil, fmt.Errorf("adminserver: failed to build graphql schema: %w", err)
	}
	return &graphQLHandler{schema: schema}, nil
}

type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func (h *graphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "GraphQL only accepts POST requests", http.StatusMethodNotAllowed)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGraphQLError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func writeGraphQLError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": []map[string]interface{}{{"message": message}},
	})
}

// graphiQLHandler serves the GraphiQL playground pointed at /graphql.
func graphiQLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(graphiqlHTML))
	}
}

const graphiqlHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>pagepool GraphiQL</title>
    <style>
        body { height: 100vh; margin: 0; width: 100%; overflow: hidden; }
        #graphiql { height: 100vh; }
    </style>
    <script crossorigin src="https://unpkg.com/react@17/umd/react.production.min.js"></script>
    <script crossorigin src="https://unpkg.com/react-dom@17/umd/react-dom.production.min.js"></script>
    <link rel="stylesheet" href="https://unpkg.com/graphiql@1.8.7/graphiql.min.css" />
</head>
<body>
    <div id="graphiql">Loading...</div>
    <script src="https://unpkg.com/graphiql@1.8.7/graphiql.min.js" type="application/javascript"></script>
    <script>
        const fetcher = GraphiQL.createFetcher({ url: '/graphql' });
        ReactDOM.render(
            React.createElement(GraphiQL, {
                fetcher: fetcher,
                defaultQuery: '# Read-only pool introspection\nquery {\n  poolStats {\n    shardCount\n    totals { framesResident framesPinned evictions }\n  }\n}\n',
            }),
            document.getElementById('graphiql'),
        );
    </script>
</body>
</html>
`
