package components

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors/extractortest"
	"github.com/dejo1307/frontdoc/internal/facts"
)

func extract(t *testing.T, files map[string]string) map[string]facts.ComponentInfo {
	t.Helper()
	repo := extractortest.NewRepo(t, config.KindReact, files)
	res, err := New().Extract(context.Background(), repo)
	require.NoError(t, err)
	out := map[string]facts.ComponentInfo{}
	for _, c := range res.Components {
		out[c.Name] = c
	}
	return out
}

func TestFunctionComponent(t *testing.T) {
	comps := extract(t, map[string]string{
		"src/components/UserCard.tsx": `import { Avatar } from "./Avatar";
import Button from "@/ui/Button";
import { useState } from "react";

export function UserCard({ user, onSelect, size = "md", ...rest }: Props) {
  const [open, setOpen] = useState(false);
  const theme = useTheme();
  return (
    <div>
      <Avatar src={user.avatar} />
      <Button onClick={() => onSelect(user)}>Select</Button>
      <Button>Again</Button>
    </div>
  );
}
`,
		"src/components/Avatar.tsx": `export const Avatar = (props: { src: string }) => <img src={props.src} />;`,
		"src/ui/Button.tsx":         `export default function Button({ children, onClick }) { return <button onClick={onClick}>{children}</button>; }`,
		"tsconfig.json":             `{"compilerOptions": {"baseUrl": "src", "paths": {"@/*": ["*"]}}}`,
	})

	card, ok := comps["UserCard"]
	require.True(t, ok)
	assert.True(t, card.Exported)
	assert.Equal(t, TypeComponent, card.Type)
	assert.Equal(t, []string{"user", "onSelect", "size", "...rest"}, card.Props)
	assert.Equal(t, []string{"useState", "useTheme"}, card.Hooks)
	assert.Equal(t, []string{"Avatar", "Button"}, card.Children)
	assert.Equal(t, []string{"src/components/Avatar.tsx", "src/ui/Button.tsx"}, card.Imports)
	assert.Equal(t, 5, card.Line)

	avatar := comps["Avatar"]
	assert.Equal(t, []string{"src"}, avatar.Props)
	assert.Empty(t, avatar.Children)

	button := comps["Button"]
	assert.Equal(t, TypeUI, button.Type)
	assert.True(t, button.Exported)
}

func TestDeclarationForms(t *testing.T) {
	comps := extract(t, map[string]string{
		"src/forms.jsx": `import React, { memo, forwardRef } from "react";

const Input = forwardRef((props, ref) => <input ref={ref} {...props} />);
export const Label = memo(function Label({ text }) { return <label>{text}</label>; });
class Legacy extends React.Component {
  render() { return <Input />; }
}
function helper() { return 1; }
const lower = () => <div />;
const NotAComponent = () => 42;

export default Legacy;
export { Input };
`,
	})

	assert.Len(t, comps, 3)
	assert.Contains(t, comps, "Input")
	assert.Contains(t, comps, "Label")
	assert.Contains(t, comps, "Legacy")
	assert.True(t, comps["Input"].Exported)
	assert.True(t, comps["Label"].Exported)
	assert.True(t, comps["Legacy"].Exported)
	assert.Equal(t, []string{"text"}, comps["Label"].Props)
	assert.Equal(t, []string{"Input"}, comps["Legacy"].Children)
}

func TestComponentTypes(t *testing.T) {
	tests := []struct {
		file, name, want string
	}{
		{"app/dashboard/page.tsx", "Dashboard", TypePage},
		{"app/layout.tsx", "RootLayout", TypeLayout},
		{"src/pages/Home.tsx", "Home", TypePage},
		{"src/components/ui/Dialog.tsx", "Dialog", TypeUI},
		{"src/features/SettingsPage.tsx", "SettingsPage", TypePage},
		{"src/components/Shell.tsx", "AppLayout", TypeLayout},
		{"src/components/Card.tsx", "Card", TypeComponent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, componentType(tt.file, tt.name), tt.file)
	}
}

func TestUnexportedAndDefaultArrow(t *testing.T) {
	comps := extract(t, map[string]string{
		"src/a.tsx": `function Inner() { return <span/>; }
export default function Outer() { return <Inner/>; }`,
	})
	require.Len(t, comps, 2)
	assert.False(t, comps["Inner"].Exported)
	assert.True(t, comps["Outer"].Exported)
	assert.Equal(t, []string{"Inner"}, comps["Outer"].Children)
	assert.Empty(t, comps["Outer"].Imports, "same-file children are not imports")
}

func TestIDsUnique(t *testing.T) {
	comps := extract(t, map[string]string{
		"src/a.tsx": `export const A = () => <div/>, B = () => <span/>;`,
	})
	require.Len(t, comps, 2)
	assert.NotEqual(t, comps["A"].ID, comps["B"].ID)
}
