package dataflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors/extractortest"
	"github.com/dejo1307/frontdoc/internal/facts"
)

func flows(t *testing.T, files map[string]string) map[string]facts.DataFlow {
	t.Helper()
	repo := extractortest.NewRepo(t, config.KindReact, files)
	res, err := New().Extract(context.Background(), repo)
	require.NoError(t, err)
	require.Empty(t, res.Operations, "operations are only used for binding lookup")
	out := map[string]facts.DataFlow{}
	for _, f := range res.DataFlows {
		out[f.Component+"/"+f.Hook] = f
	}
	return out
}

func TestApolloBindingsResolvedAcrossFiles(t *testing.T) {
	got := flows(t, map[string]string{
		"src/graphql/user.ts": "import { gql } from \"@apollo/client\";\n" +
			"export const GET_USER = gql`query GetUser($id: ID!) { user(id: $id) { id } }`;\n" +
			"export const SAVE_USER = gql`mutation SaveUser { save }`;\n",
		"src/Profile.tsx": `import { useQuery, useMutation } from "@apollo/client";
import { GET_USER, SAVE_USER } from "./graphql/user";

export function Profile({ id }) {
  const { data } = useQuery(GET_USER, { variables: { id } });
  const [save] = useMutation(SAVE_USER);
  return <div>{data.user.id}</div>;
}
`,
	})
	require.Len(t, got, 2)

	q := got["Profile/useQuery"]
	assert.Equal(t, facts.FlowGraphQL, q.Type)
	assert.Equal(t, "GetUser", q.Operation)
	assert.Equal(t, "GetUser", q.From)
	assert.Equal(t, "Profile", q.To)
	assert.Equal(t, 5, q.Line)

	m := got["Profile/useMutation"]
	assert.Equal(t, "SaveUser", m.Operation)
	assert.Equal(t, "Profile", m.From)
	assert.Equal(t, "SaveUser", m.To)
}

func TestUnknownBindingIsPlaceholder(t *testing.T) {
	got := flows(t, map[string]string{
		"src/A.tsx": "import { useMutation } from \"@apollo/client\";\n" +
			"export function A() { const [d] = useMutation(DELETE_USER); return <b/>; }\n",
	})
	f := got["A/useMutation"]
	assert.Equal(t, facts.FlowGraphQL, f.Type)
	assert.Equal(t, "[DELETE_USER]", f.Operation)
	assert.Equal(t, "A", f.From)
	assert.Equal(t, "[DELETE_USER]", f.To)
}

func TestInlineDocument(t *testing.T) {
	got := flows(t, map[string]string{
		"src/List.jsx": "export function List() {\n" +
			"  const { data } = useQuery(gql`query ListItems { items { id } }`);\n" +
			"  return <ul/>;\n}\n",
	})
	f := got["List/useQuery"]
	assert.Equal(t, facts.FlowGraphQL, f.Type)
	assert.Equal(t, "ListItems", f.Operation)
}

func TestReactQueryIsREST(t *testing.T) {
	got := flows(t, map[string]string{
		"src/Todos.tsx": `import { useQuery, useMutation } from "@tanstack/react-query";
import useSWR from "swr";

export function Todos() {
  const todos = useQuery({ queryKey: ["todos"], queryFn: fetchTodos });
  const add = useMutation({ mutationFn: addTodo });
  const { data } = useSWR("/api/me", fetcher);
  return <div/>;
}
`,
	})

	q := got["Todos/useQuery"]
	assert.Equal(t, facts.FlowREST, q.Type)
	assert.Equal(t, "todos", q.From)
	assert.Equal(t, "Todos", q.To)
	assert.Empty(t, q.Operation)

	m := got["Todos/useMutation"]
	assert.Equal(t, facts.FlowREST, m.Type)
	assert.Equal(t, "Todos", m.From)
	assert.Equal(t, "[addTodo]", m.To)

	s := got["Todos/useSWR"]
	assert.Equal(t, facts.FlowREST, s.Type)
	assert.Equal(t, "/api/me", s.From)
}

func TestContextAndStore(t *testing.T) {
	got := flows(t, map[string]string{
		"src/Header.tsx": `export const Header = () => {
  const auth = useContext(AuthContext);
  const user = useSelector((state) => state.user.profile);
  const count = useAppSelector(selectCount);
  return <header/>;
};

export function useCurrentUser() {
  return useContext(AuthContext);
}

function helper() {
  return useContext(AuthContext);
}
`,
	})

	assert.Equal(t, facts.FlowContext, got["Header/useContext"].Type)
	assert.Equal(t, "AuthContext", got["Header/useContext"].From)
	assert.Equal(t, "Header", got["Header/useContext"].To)

	assert.Equal(t, facts.FlowStore, got["Header/useSelector"].Type)
	assert.Equal(t, "store.user", got["Header/useSelector"].From)
	assert.Equal(t, "store:selectCount", got["Header/useAppSelector"].From)

	assert.Contains(t, got, "useCurrentUser/useContext", "custom hooks are owners")
	assert.NotContains(t, got, "helper/useContext", "plain functions are not owners")
}

func TestLooksLikeDocument(t *testing.T) {
	for name, want := range map[string]bool{
		"GET_USER":           true,
		"userQuery":          true,
		"UpdateUserDocument": true,
		"queries.LIST":       true,
		"fetchTodos":         false,
		"addTodo":            false,
	} {
		assert.Equal(t, want, looksLikeDocument(name), name)
	}
}
