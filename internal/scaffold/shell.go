package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
)

// Shell writes the fixed preview harness around a generated component:
// a minimal Vite + React project whose entry renders the component
// full-bleed on a neutral background. The component file itself lives
// outside the shell and is symlink-free: the entry imports it by
// relative path.
type Shell struct {
	// ComponentName is the exported identifier the entry imports.
	ComponentName string
	// ComponentImport is the path the entry uses to reach the
	// component file, relative to the shell's src directory.
	ComponentImport string
}

type shellFile struct {
	path    string
	content string
}

// Write lays the harness files out under dir. Existing files are
// overwritten: the shell is fixed scaffolding, never user-edited.
func (s Shell) Write(dir string) error {
	name := s.ComponentName
	if name == "" {
		name = "AnimatedComponent"
	}
	// The draft file keeps a fixed name regardless of the exported
	// component's name; the default export makes the binding free.
	imp := s.ComponentImport
	if imp == "" {
		imp = "../../component/AnimatedComponent"
	}

	files := []shellFile{
		{"package.json", packageJSON},
		{"vite.config.ts", viteConfig},
		{"index.html", indexHTML},
		{filepath.Join("src", "main.tsx"), fmt.Sprintf(mainTSX, name, imp, name)},
		{filepath.Join("src", "styles.css"), stylesCSS},
	}

	for _, f := range files {
		dest := filepath.Join(dir, f.path)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating shell directory: %w", err)
		}
		if err := os.WriteFile(dest, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
	}
	return nil
}

const packageJSON = `{
  "name": "clip2tsx-preview",
  "private": true,
  "version": "0.0.0",
  "type": "module",
  "scripts": {
    "dev": "vite",
    "build": "vite build"
  },
  "dependencies": {
    "react": "^18.3.1",
    "react-dom": "^18.3.1"
  },
  "devDependencies": {
    "@types/react": "^18.3.12",
    "@types/react-dom": "^18.3.1",
    "@vitejs/plugin-react": "^4.3.4",
    "typescript": "^5.6.3",
    "vite": "^6.0.3"
  }
}
`

const viteConfig = `import { defineConfig } from "vite";
import react from "@vitejs/plugin-react";

export default defineConfig({
  plugins: [react()],
  server: { fs: { allow: [".."] } },
});
`

const indexHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>clip2tsx preview</title>
  </head>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.tsx"></script>
  </body>
</html>
`

const mainTSX = `import React from "react";
import ReactDOM from "react-dom/client";
import %s from "%s";
import "./styles.css";

ReactDOM.createRoot(document.getElementById("root")!).render(
  <React.StrictMode>
    <div className="stage">
      <%s />
    </div>
  </React.StrictMode>
);
`

const stylesCSS = `html,
body,
#root {
  height: 100%;
  margin: 0;
}

.stage {
  display: flex;
  align-items: center;
  justify-content: center;
  height: 100%;
  background: #f5f5f5;
}
`
