package ast

// VocabularyVersion identifies the tag catalog below. Persisted
// artifacts record the version they were compiled against; bump it when
// tags are added or reclassified.
const VocabularyVersion = "2026.2"

// Category classifies a tag by the behavior it introduces. Display and
// Layout tags are static; State, Conditional, Loop, Event, and Action
// tags require hydration wherever they appear.
type Category int

const (
	CategoryDisplay Category = iota
	CategoryLayout
	CategoryState
	CategoryConditional
	CategoryLoop
	CategoryEvent
	CategoryAction
)

// String returns the category name used in diagnostics and artifacts.
func (c Category) String() string {
	switch c {
	case CategoryDisplay:
		return "display"
	case CategoryLayout:
		return "layout"
	case CategoryState:
		return "state"
	case CategoryConditional:
		return "conditional"
	case CategoryLoop:
		return "loop"
	case CategoryEvent:
		return "event"
	case CategoryAction:
		return "action"
	default:
		return "unknown"
	}
}

// TagInfo describes one catalog entry.
type TagInfo struct {
	// Name is the canonical casing of the tag.
	Name string
	// Category drives dynamism classification and limit metrics.
	Category Category
	// Void marks tags that never take children (always self-closing).
	Void bool
}

// Lookup resolves a tag name against the closed catalog,
// case-insensitively, returning the canonical entry. A false result
// means the tag is not part of the vocabulary and must be rejected at
// parse time.
func Lookup(tag string) (TagInfo, bool) {
	info, ok := catalog[NormalizeTag(tag)]
	return info, ok
}

// TagCount returns the size of the catalog.
func TagCount() int { return len(catalog) }

var catalog = buildCatalog()

func buildCatalog() map[string]TagInfo {
	m := make(map[string]TagInfo, 512)
	add := func(cat Category, void bool, names ...string) {
		for _, name := range names {
			m[NormalizeTag(name)] = TagInfo{Name: name, Category: cat, Void: void}
		}
	}

	// Text and inline display.
	add(CategoryDisplay, false,
		"Text", "Paragraph", "Heading", "Subheading", "Title", "Caption",
		"Label", "Quote", "Blockquote", "Code", "CodeBlock", "Preformatted",
		"Bold", "Italic", "Underline", "Strikethrough", "Highlight",
		"Superscript", "Subscript", "SmallText", "BigText", "Link",
		"Anchor", "Emoji", "Timestamp", "RelativeTime", "Counter",
		"Badge", "Tag", "Pill", "Chip", "Tooltip", "Abbreviation",
		"Marquee", "GlitterText", "RainbowText", "SparkleText",
		"BlinkText", "TypewriterText", "GradientText", "OutlineText",
		"ShadowText", "WaveText",
	)
	add(CategoryDisplay, true,
		"LineBreak", "HorizontalRule", "WordBreak", "Spacer",
	)

	// Media display.
	add(CategoryDisplay, false,
		"Image", "Photo", "Avatar", "Icon", "Figure", "FigureCaption",
		"Gallery", "Slideshow", "Thumbnail", "Banner", "CoverImage",
		"AudioPlayer", "VideoPlayer", "MusicEmbed", "Playlist",
		"PixelArt", "AnimatedGif", "Sticker", "StampCollection",
		"CursorTrail", "BackgroundImage", "BackgroundPattern",
		"Favicon", "Divider", "DecoratedDivider",
	)

	// Profile, posts, and ring widgets (data supplied by external
	// collaborators through read-only bindings).
	add(CategoryDisplay, false,
		"ProfileCard", "ProfileField", "ProfileHandle", "ProfileBio",
		"ProfilePronouns", "ProfileLocation", "ProfileWebsite",
		"ProfileJoinDate", "ProfileStatus", "StatusMessage", "MoodRing",
		"NowPlaying", "PostList", "PostCard", "PostBody", "PostTitle",
		"PostDate", "PostTags", "PostPermalink", "CommentList",
		"CommentCard", "GuestbookEntries", "GuestbookEntry",
		"FriendList", "FriendCard", "FollowerCount", "FollowingCount",
		"RingBanner", "RingBadge", "RingNavigator", "RingMemberList",
		"RingDirectory", "NeighborPages", "VisitorCounter", "HitCounter",
		"LastUpdated", "BlogrollList", "LinkList", "Webring",
		"PageViews", "OnlineStatus", "JoinButton", "LeaveButton",
	)

	// Layout containers.
	add(CategoryLayout, false,
		"Page", "Section", "Container", "Box", "Panel", "Card",
		"CardHeader", "CardBody", "CardFooter", "Row", "Column", "Grid",
		"GridItem", "Stack", "HStack", "VStack", "Flex", "FlexItem",
		"Sidebar", "MainContent", "Header", "Footer", "NavigationBar",
		"NavigationItem", "Menu", "MenuItem", "TabGroup", "Tab",
		"TabPanel", "Accordion", "AccordionItem", "Collapsible",
		"Details", "Summary", "Modal", "ModalHeader", "ModalBody",
		"ModalFooter", "Drawer", "Popover", "List", "ListItem",
		"OrderedList", "UnorderedList", "DefinitionList", "Table",
		"TableHead", "TableBody", "TableRow", "TableCell",
		"TableHeaderCell", "Form", "FormField", "FieldSet", "Legend",
		"InputText", "InputNumber", "InputCheckbox", "InputRadio",
		"InputRange", "InputColor", "InputDate", "TextArea", "Select",
		"Option", "Button", "ButtonGroup", "IconButton", "Frame",
		"ScrollArea", "StickyArea", "FloatingArea", "CenteredArea",
		"AspectRatio", "Overlay", "ZigzagLayout", "MasonryLayout",
		"PolaroidFrame", "NotebookPage", "WindowFrame", "TitleBar",
	)

	// State declarations.
	add(CategoryState, true,
		"Var", "NumberVar", "TextVar", "BoolVar", "ListVar", "ObjectVar",
		"ColorVar", "ComputedVar", "PersistentVar", "SessionVar",
	)

	// Conditionals.
	add(CategoryConditional, false,
		"If", "ElseIf", "Else", "Switch", "Case", "Default", "Show",
		"Hide", "Unless",
	)

	// Loops and loop control.
	add(CategoryLoop, false, "ForEach", "Repeat", "Range")
	add(CategoryLoop, true, "Break", "Continue")

	// Event bindings.
	add(CategoryEvent, false,
		"OnClick", "OnDoubleClick", "OnChange", "OnInput", "OnSubmit",
		"OnMount", "OnUnmount", "OnInterval", "OnTimeout", "OnHover",
		"OnHoverEnd", "OnFocus", "OnBlur", "OnKeyPress", "OnKeyDown",
		"OnKeyUp", "OnScroll", "OnVisible", "OnHidden", "OnResize",
	)

	// Imperative actions.
	add(CategoryAction, true,
		"Set", "Increment", "Decrement", "Toggle", "Reset", "Push",
		"Pop", "Shift", "Unshift", "Remove", "RemoveAt", "Clear",
		"Filter", "SortList", "ReverseList", "Concat", "Append",
		"Navigate", "OpenModal", "CloseModal", "ScrollTo", "CopyText",
		"PlaySound", "StopSound", "ShowToast", "FocusElement",
	)
	add(CategoryAction, false, "Delay", "Sequence", "Batch")

	return m
}
