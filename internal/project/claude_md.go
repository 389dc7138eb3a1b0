package project

// DefaultClaudeMD is written to the project's CLAUDE.md during setup
// when the project does not have one yet.
const DefaultClaudeMD = `## Modifying Software Projects
- You MUST always validate that a project still builds after making changes.
- You MUST always run linting on a project after making changes.
- You MUST always fix linting errors and warnings.
- You MUST always run available tests on a project after making changes.
- You MUST always fix failing tests.
- You MUST NOT push to a remote git repository before making sure that README.md and Claude.md have been updated according to latest changes.

## Secure Coding
- You MUST NEVER implement logging of secrets like cryptographic keys, API keys, user names, or similar.
- You MUST NEVER add log files to git repositories.

## Documentation, README, Git commit messages
- When committing, always include a verbatim copy of the starting prompt used for this conversation.
- You MUST NOT boast about program features.
- When writing user-oriented documentation, do not talk about technical or architectural details which are irrelevant to the end user.
- Avoid using overly enthusiastic or boastful wording like "comprehensive", "excellent", "greatly" etc. Remain clear and factual.

## Rust
- Always reformat code with ` + "`cargo fmt`" + ` after making a change
- ALways lint code with ` + "`cargo clippy --allow-dirty --fix`" + `. Then fix all the issues that were not yet fixed.
`
