package pipeline

const aboutPage = "---\n" +
	"icon: user\n" +
	"order: 4\n" +
	"title: About\n" +
	"---\n" +
	"\n" +
	"I write about systems programming.\n"

const formattingPost = "---\n" +
	"title: \"Rust vs C++ Formatting\"\n" +
	"category: programming\n" +
	"tags:\n" +
	"  - rust\n" +
	"  - cpp\n" +
	"---\n" +
	"\n" +
	"# Rust vs C++ Formatting\n" +
	"\n" +
	"Both `{fmt}`[^fmt] and Rust's `format!`[^rust] check format strings at compile time.\n" +
	"\n" +
	"```cpp\n" +
	"fmt::print(\"{}\", 42); // **not bold**\n" +
	"```\n" +
	"\n" +
	"```rust\n" +
	"println!(\"{}\", 42);\n" +
	"```\n" +
	"\n" +
	"[^fmt]: https://fmt.dev\n" +
	"[^rust]: https://doc.rust-lang.org/std/fmt/\n" +
	"[^spare]: never cited\n"
