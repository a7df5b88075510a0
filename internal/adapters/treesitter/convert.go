package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/sigsync/internal/domain/cppast"
	"github.com/corey/sigsync/internal/domain/textedit"
)

// converter turns a tree-sitter-cpp syntax tree into a cppast.File. It keeps
// scopes, declarations and definitions and the declarator chains inside them;
// everything else is dropped.
type converter struct {
	source []byte
	scope  []string
	types  []cppast.TypeDecl
}

func convert(path string, root *tree_sitter.Node, source []byte) *cppast.File {
	c := &converter{source: source}
	nodes := c.items(root)
	return cppast.NewFile(path, source, nodes, c.types)
}

// items converts the declarations directly inside a translation unit,
// namespace body or class body.
func (c *converter) items(n *tree_sitter.Node) []cppast.Node {
	var out []cppast.Node
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		out = append(out, c.item(n.Child(i))...)
	}
	return out
}

func (c *converter) item(n *tree_sitter.Node) []cppast.Node {
	switch n.Kind() {
	case "namespace_definition":
		return c.namespace(n)
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		if s := c.classScope(n); s != nil {
			return []cppast.Node{s}
		}
	case "function_definition":
		return []cppast.Node{c.definition(n)}
	case "declaration", "field_declaration":
		return c.declaration(n)
	case "type_definition":
		c.typedef(n)
	case "alias_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			c.addType(nodeText(name, c.source), cppast.TypeAlias)
		}
	case "template_declaration", "linkage_specification", "declaration_list",
		"preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
		return c.items(n)
	}
	return nil
}

func (c *converter) namespace(n *tree_sitter.Node) []cppast.Node {
	var names []string
	if name := n.ChildByFieldName("name"); name != nil {
		for _, part := range strings.Split(nodeText(name, c.source), "::") {
			if part = strings.TrimSpace(part); part != "" && part != "inline" {
				names = append(names, strings.TrimPrefix(part, "inline "))
			}
		}
	}
	if len(names) == 0 {
		names = []string{""}
	}

	saved := c.scope
	for _, name := range names {
		if name != "" {
			c.scope = append(c.scope[:len(c.scope):len(c.scope)], name)
		}
	}
	var body []cppast.Node
	if b := n.ChildByFieldName("body"); b != nil {
		body = c.items(b)
	}
	c.scope = saved

	extent := span(n)
	for i := len(names) - 1; i >= 0; i-- {
		s := &cppast.Scope{Kind: cppast.ScopeNamespace, Name: names[i], Extent: extent, Body: body}
		body = []cppast.Node{s}
	}
	return body
}

var scopeKinds = map[string]cppast.ScopeKind{
	"class_specifier":  cppast.ScopeClass,
	"struct_specifier": cppast.ScopeStruct,
	"union_specifier":  cppast.ScopeUnion,
}

var typeKinds = map[string]cppast.TypeKind{
	"class_specifier":  cppast.TypeClass,
	"struct_specifier": cppast.TypeStruct,
	"union_specifier":  cppast.TypeUnion,
	"enum_specifier":   cppast.TypeEnum,
}

// classScope records the type a class/struct/union/enum specifier names and,
// if it has a body, returns the scope it opens.
func (c *converter) classScope(n *tree_sitter.Node) *cppast.Scope {
	name := ""
	if nn := n.ChildByFieldName("name"); nn != nil {
		name = lastComponent(nn, c.source)
	}
	if name != "" {
		c.addType(name, typeKinds[n.Kind()])
	}

	kind, ok := scopeKinds[n.Kind()]
	body := n.ChildByFieldName("body")
	if !ok || body == nil || name == "" {
		return nil
	}

	saved := c.scope
	c.scope = append(c.scope[:len(c.scope):len(c.scope)], name)
	inner := c.items(body)
	c.scope = saved

	return &cppast.Scope{Kind: kind, Name: name, Extent: span(n), Body: inner}
}

func (c *converter) addType(name string, kind cppast.TypeKind) {
	c.types = append(c.types, cppast.TypeDecl{
		Name:  name,
		Scope: append([]string(nil), c.scope...),
		Kind:  kind,
	})
}

func (c *converter) typedef(n *tree_sitter.Node) {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		if n.FieldNameForChild(uint32(i)) != "declarator" {
			continue
		}
		if id := declaratorName(n.Child(i)); id != nil {
			c.addType(nodeText(id, c.source), cppast.TypeAlias)
		}
	}
}

// declaration handles declaration and field_declaration nodes. A class
// specifier used as the declared type contributes its own scope.
func (c *converter) declaration(n *tree_sitter.Node) []cppast.Node {
	var out []cppast.Node
	if t := n.ChildByFieldName("type"); t != nil && t.ChildByFieldName("body") != nil {
		out = append(out, c.item(t)...)
	}

	decl := &cppast.SimpleDeclaration{Extent: span(n), ReturnType: cppast.NoSpan}
	var first *tree_sitter.Node
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		if n.FieldNameForChild(uint32(i)) != "declarator" {
			continue
		}
		child := n.Child(i)
		if first == nil {
			first = child
		}
		if d := c.declarator(child); d != nil {
			decl.Declarators = append(decl.Declarators, d)
		}
	}
	if first == nil {
		return out
	}
	decl.ReturnType = c.returnType(n, first)
	return append(out, decl)
}

func (c *converter) definition(n *tree_sitter.Node) *cppast.FunctionDefinition {
	def := &cppast.FunctionDefinition{Extent: span(n), ReturnType: cppast.NoSpan}
	d := n.ChildByFieldName("declarator")
	if d != nil {
		def.Declarator = c.declarator(d)
		def.ReturnType = c.returnType(n, d)
	}
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "field_initializer_list":
			def.Init = &cppast.CtorInitializer{Extent: span(child)}
			c.uses(child, &def.Uses)
		case "compound_statement":
			def.Body = &cppast.CompoundStatement{Extent: span(child)}
			c.uses(child, &def.Uses)
		}
	}
	return def
}

// returnType spans the type specifier and qualifiers before the declarator
// plus any pointer or reference operators that wrap the function declarator.
// Storage classes and function specifiers are left out.
func (c *converter) returnType(n, declarator *tree_sitter.Node) textedit.Span {
	t := n.ChildByFieldName("type")
	if t == nil {
		return cppast.NoSpan
	}
	start := int(t.StartByte())
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		if int(child.StartByte()) >= start {
			break
		}
		if child.Kind() == "type_qualifier" {
			start = int(child.StartByte())
			break
		}
	}

	end := int(declarator.StartByte())
	if fn := functionDeclarator(declarator); fn != nil {
		end = int(fn.StartByte())
	}
	for end > start && isSpace(c.source[end-1]) {
		end--
	}
	return textedit.Span{Start: start, End: end}
}

// declarator converts a declarator subtree. It returns nil for shapes that
// cannot name anything.
func (c *converter) declarator(n *tree_sitter.Node) cppast.Node {
	switch n.Kind() {
	case "function_declarator":
		return c.functionDeclarator(n)
	case "pointer_declarator", "reference_declarator", "parenthesized_declarator", "array_declarator":
		inner := innerDeclarator(n)
		if inner == nil {
			return nil
		}
		op := "("
		switch n.Kind() {
		case "pointer_declarator":
			op = "*"
		case "reference_declarator":
			op = strings.TrimSpace(string(c.source[n.StartByte():inner.StartByte()]))
		case "array_declarator":
			op = "["
		}
		return &cppast.NestedDeclarator{Extent: span(n), Operator: op, Inner: c.declarator(inner)}
	case "init_declarator":
		if d := n.ChildByFieldName("declarator"); d != nil {
			return c.declarator(d)
		}
	default:
		if id := c.declaratorID(n); id != nil {
			return id
		}
	}
	return nil
}

func (c *converter) declaratorID(n *tree_sitter.Node) *cppast.DeclaratorID {
	id := &cppast.DeclaratorID{Extent: span(n)}
	cur := n
	for {
		switch cur.Kind() {
		case "qualified_identifier":
			scope := cur.ChildByFieldName("scope")
			if scope == nil {
				if len(id.Qualifier) == 0 {
					id.Global = true
				}
			} else {
				id.Qualifier = append(id.Qualifier, lastComponent(scope, c.source))
			}
			cur = cur.ChildByFieldName("name")
			if cur == nil {
				return nil
			}
			continue
		case "template_function":
			if name := cur.ChildByFieldName("name"); name != nil {
				id.Name = nodeText(name, c.source)
				id.NameSpan = span(name)
				return id
			}
			return nil
		case "identifier", "field_identifier", "destructor_name", "operator_name", "type_identifier":
			id.Name = nodeText(cur, c.source)
			id.NameSpan = span(cur)
			return id
		}
		return nil
	}
}

func (c *converter) functionDeclarator(n *tree_sitter.Node) *cppast.FunctionDeclarator {
	fd := &cppast.FunctionDeclarator{
		Extent:    span(n),
		LParen:    -1,
		RParen:    -1,
		Exception: cppast.NoSpan,
		Trailing:  cppast.NoSpan,
	}
	if d := n.ChildByFieldName("declarator"); d != nil {
		fd.ID = c.declaratorID(d)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		c.parameters(params, fd)
	}

	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "type_qualifier":
			text := nodeText(child, c.source)
			if text == "const" || text == "volatile" {
				fd.CV = append(fd.CV, cppast.Token{Text: text, Span: span(child)})
			}
		case "noexcept", "throw_specifier":
			fd.Exception = span(child)
		case "trailing_return_type":
			if t := childByKind(child, "type_descriptor"); t != nil {
				fd.Trailing = span(t)
			} else {
				fd.Trailing = span(child)
			}
		}
	}
	return fd
}

func (c *converter) parameters(n *tree_sitter.Node, fd *cppast.FunctionDeclarator) {
	count := n.ChildCount()
	if count == 0 {
		return
	}
	if first := n.Child(0); first.Kind() == "(" && !first.IsMissing() {
		fd.LParen = int(first.StartByte())
	}
	if last := n.Child(count - 1); last.Kind() == ")" && !last.IsMissing() {
		fd.RParen = int(last.StartByte())
	}

	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			fd.Params = append(fd.Params, c.parameter(child))
		case "...":
			fd.Params = append(fd.Params, cppast.Param{
				Extent:      span(child),
				Decl:        span(child),
				NameSpan:    cppast.NoSpan,
				DefaultSpan: cppast.NoSpan,
				Variadic:    true,
			})
		}
	}
}

func (c *converter) parameter(n *tree_sitter.Node) cppast.Param {
	p := cppast.Param{
		Extent:      span(n),
		Decl:        span(n),
		NameSpan:    cppast.NoSpan,
		DefaultSpan: cppast.NoSpan,
	}
	d := n.ChildByFieldName("declarator")
	if d != nil {
		if id := declaratorName(d); id != nil {
			p.Name = nodeText(id, c.source)
			p.NameSpan = span(id)
		}
	}
	if v := n.ChildByFieldName("default_value"); v != nil {
		p.Default = nodeText(v, c.source)
		p.DefaultSpan = span(v)
		end := int(v.StartByte())
		if d != nil {
			end = int(d.EndByte())
		} else if t := n.ChildByFieldName("type"); t != nil {
			end = int(t.EndByte())
		}
		p.Decl.End = end
	}
	return p
}

// uses collects plain identifier references below n. Member names and the
// last component of qualified names are not plain references, and neither
// is a name inside a lambda that declares a parameter of that name.
func (c *converter) uses(n *tree_sitter.Node, out *[]cppast.Ident) {
	c.collectUses(n, nil, out)
}

func (c *converter) collectUses(n *tree_sitter.Node, shadowed map[string]bool, out *[]cppast.Ident) {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "identifier":
			name := nodeText(child, c.source)
			if n.Kind() != "qualified_identifier" && !shadowed[name] {
				*out = append(*out, cppast.Ident{Name: name, Span: span(child)})
			}
			continue
		case "lambda_expression":
			c.collectUses(child, c.lambdaParams(child, shadowed), out)
			continue
		}
		c.collectUses(child, shadowed, out)
	}
}

// lambdaParams returns shadowed plus the parameter names lambda declares.
func (c *converter) lambdaParams(lambda *tree_sitter.Node, shadowed map[string]bool) map[string]bool {
	d := lambda.ChildByFieldName("declarator")
	if d == nil {
		return shadowed
	}
	params := d.ChildByFieldName("parameters")
	if params == nil {
		return shadowed
	}
	out := make(map[string]bool, len(shadowed)+int(params.NamedChildCount()))
	for name := range shadowed {
		out[name] = true
	}
	for i := uint(0); i < uint(params.NamedChildCount()); i++ {
		if id := declaratorName(params.NamedChild(i).ChildByFieldName("declarator")); id != nil {
			out[nodeText(id, c.source)] = true
		}
	}
	return out
}

// declaratorName descends a (possibly abstract) declarator to the identifier
// it declares.
func declaratorName(n *tree_sitter.Node) *tree_sitter.Node {
	for n != nil {
		switch n.Kind() {
		case "identifier", "field_identifier", "type_identifier":
			return n
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator",
			"array_declarator", "variadic_declarator", "function_declarator", "init_declarator":
			n = innerDeclarator(n)
		default:
			return nil
		}
	}
	return nil
}

// innerDeclarator returns the declarator wrapped by n. Some wrappers carry
// it in the "declarator" field, reference and variadic declarators as their
// only named child.
func innerDeclarator(n *tree_sitter.Node) *tree_sitter.Node {
	if d := n.ChildByFieldName("declarator"); d != nil {
		return d
	}
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() && child.Kind() != "type_qualifier" && child.Kind() != "comment" {
			return child
		}
	}
	return nil
}

// functionDeclarator finds the function declarator inside a declarator chain.
func functionDeclarator(n *tree_sitter.Node) *tree_sitter.Node {
	for n != nil {
		switch n.Kind() {
		case "function_declarator":
			return n
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator", "init_declarator":
			n = innerDeclarator(n)
		default:
			return nil
		}
	}
	return nil
}

// lastComponent returns the unqualified name of a (possibly qualified or
// templated) name node: a::B<T> -> B.
func lastComponent(n *tree_sitter.Node, source []byte) string {
	for n != nil {
		switch n.Kind() {
		case "qualified_identifier":
			n = n.ChildByFieldName("name")
		case "template_type", "template_function":
			n = n.ChildByFieldName("name")
		default:
			return nodeText(n, source)
		}
	}
	return ""
}

func span(n *tree_sitter.Node) textedit.Span {
	return textedit.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

// nodeText returns the source text for a node.
func nodeText(n *tree_sitter.Node, source []byte) string {
	return string(source[n.StartByte():n.EndByte()])
}

// childByKind finds the first child with the given kind.
func childByKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
