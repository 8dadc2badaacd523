package parser

import "evmc/internal/ast"

// ParseError represents a syntax error encountered while parsing tokens
// into the contract AST.
type ParseError struct {
	Message  string
	Position Position
}

// Parser consumes a token stream produced by the Scanner and builds an
// evmc/internal/ast.Contract, recovering from syntax errors by
// synchronizing at statement/declaration boundaries.
type Parser struct {
	filename string
	tokens   []Token
	current  int
	errors   []ParseError
}

// NewParser creates a parser over the given token stream. filename is
// attached to every position produced so diagnostics can point back at
// the originating source file.
func NewParser(filename string, tokens []Token) *Parser {
	return &Parser{
		filename: filename,
		tokens:   tokens,
	}
}

// ParseContract parses the entire token stream as a single contract
// declaration, optionally preceded by leading comments.
func (p *Parser) ParseContract() *ast.Contract {
	var leading []ast.ContractItem
	for p.check(COMMENT) || p.check(DOC_COMMENT) || p.check(BLOCK_COMMENT) {
		leading = append(leading, p.parseLeadingComment())
	}

	if !p.check(CONTRACT) {
		p.errorAtCurrent("expected 'contract' keyword")
		return &ast.Contract{LeadingComments: leading}
	}

	start := p.advance()
	name, ok := p.consumeIdent("expected contract name")
	if !ok {
		p.synchronize()
	}

	p.consume(LEFT_BRACE, "expected '{' to start contract body")

	var items []ast.ContractItem
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		item := p.parseContractItem()
		if item != nil {
			items = append(items, item)
		}
	}

	end := p.consume(RIGHT_BRACE, "expected '}' to close contract body")

	return &ast.Contract{
		Pos:             p.makePos(start),
		EndPos:          p.makeEndPos(end),
		LeadingComments: leading,
		Name:            name,
		Items:           items,
	}
}

// parseContractItem parses a single top-level item inside a contract
// body: a use declaration, a struct, or a function, each optionally
// preceded by a doc comment and a single #[attribute], in either order.
func (p *Parser) parseContractItem() ast.ContractItem {
	if p.check(COMMENT) || p.check(BLOCK_COMMENT) {
		return p.parseLeadingComment()
	}

	var doc *ast.DocComment
	for p.check(DOC_COMMENT) {
		tok := p.advance()
		doc = &ast.DocComment{
			Pos:    p.makePos(tok),
			EndPos: p.makeEndPos(tok),
			Text:   tok.Lexeme,
		}
	}

	var attr *ast.Attribute
	if p.check(POUND) {
		attr = p.parseAttribute()
	}
	for p.check(DOC_COMMENT) {
		tok := p.advance()
		doc = &ast.DocComment{
			Pos:    p.makePos(tok),
			EndPos: p.makeEndPos(tok),
			Text:   tok.Lexeme,
		}
	}

	switch {
	case p.check(USE):
		return p.parseUse()
	case p.check(STRUCT):
		return p.parseStructWithDoc(attr, doc)
	case p.check(EXT):
		p.advance()
		return p.parseFunction(attr, doc, true)
	case p.check(FN):
		return p.parseFunction(attr, doc, false)
	default:
		tok := p.peek()
		p.errorAtCurrent("expected 'use', 'struct', or function declaration")
		bad := &ast.BadContractItem{
			Bad: ast.BadNode{
				Pos:     p.makePos(tok),
				EndPos:  p.makeEndPos(tok),
				Message: "unexpected token in contract body: " + tok.Lexeme,
			},
		}
		p.synchronize()
		return bad
	}
}

// parseLeadingComment consumes one comment token, classifying it as a
// DocComment (///, /** */) or a plain Comment.
func (p *Parser) parseLeadingComment() ast.ContractItem {
	tok := p.advance()
	if tok.Type == DOC_COMMENT {
		return &ast.DocComment{
			Pos:    p.makePos(tok),
			EndPos: p.makeEndPos(tok),
			Text:   tok.Lexeme,
		}
	}
	return &ast.Comment{
		Pos:    p.makePos(tok),
		EndPos: p.makeEndPos(tok),
		Text:   tok.Lexeme,
	}
}

// parseComment consumes a single plain comment token as a struct/block item.
func (p *Parser) parseComment() *ast.Comment {
	tok := p.advance()
	return &ast.Comment{
		Pos:    p.makePos(tok),
		EndPos: p.makeEndPos(tok),
		Text:   tok.Lexeme,
	}
}

// parseAttribute parses a #[name] attribute.
func (p *Parser) parseAttribute() *ast.Attribute {
	start := p.consume(POUND, "expected '#' to start attribute")
	p.consume(LEFT_BRACKET, "expected '[' after '#'")
	name, ok := p.consumeIdent("expected attribute name")
	end := p.consume(RIGHT_BRACKET, "expected ']' to close attribute")
	if !ok {
		return nil
	}
	return &ast.Attribute{
		Pos:    p.makePos(start),
		EndPos: p.makeEndPos(end),
		Name:   name.Value,
	}
}

// parseVariableType parses a type in declaration position: a plain
// name with optional generic arguments ("U256", "Table<Address, U256>"),
// a tuple type ("(U256, Bool)"), or a reference type ("&T", "&mut T").
func (p *Parser) parseVariableType() *ast.VariableType {
	if p.check(AMPERSAND) {
		amp := p.advance()
		mut := p.match(MUT)
		target := p.parseVariableType()
		ref := &ast.RefVariableType{
			Pos:    p.makePos(amp),
			EndPos: target.EndPos,
			Mut:    mut,
			Target: target,
		}
		return &ast.VariableType{
			Pos:    ref.Pos,
			EndPos: ref.EndPos,
			Ref:    ref,
		}
	}

	if p.check(LEFT_PAREN) {
		start := p.advance()
		var elements []*ast.VariableType
		if !p.check(RIGHT_PAREN) {
			elements = append(elements, p.parseVariableType())
			for p.match(COMMA) {
				if p.check(RIGHT_PAREN) {
					break
				}
				elements = append(elements, p.parseVariableType())
			}
		}
		end := p.consume(RIGHT_PAREN, "expected ')' to close tuple type")
		return &ast.VariableType{
			Pos:           p.makePos(start),
			EndPos:        p.makeEndPos(end),
			TupleElements: elements,
		}
	}

	name, ok := p.consumeIdent("expected type name")
	if !ok {
		return &ast.VariableType{Pos: name.Pos, EndPos: name.EndPos, Name: name}
	}

	endPos := name.EndPos
	var generics []*ast.VariableType
	if p.match(LESS) {
		if !p.check(GREATER) {
			generics = append(generics, p.parseVariableType())
			for p.match(COMMA) {
				generics = append(generics, p.parseVariableType())
			}
		}
		closing := p.consume(GREATER, "expected '>' after generic parameters")
		endPos = p.makeEndPos(closing)
	}

	return &ast.VariableType{
		Pos:      name.Pos,
		EndPos:   endPos,
		Name:     name,
		Generics: generics,
	}
}
